package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/broadcast"
	"github.com/dannyrandall/moviecatalog/internal/client"
	"github.com/dannyrandall/moviecatalog/internal/config"
	"github.com/dannyrandall/moviecatalog/internal/copilot"
	"github.com/dannyrandall/moviecatalog/internal/gateway"
	"github.com/dannyrandall/moviecatalog/internal/handlers"
	"github.com/dannyrandall/moviecatalog/internal/lifecycle"
	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/otel"
	"github.com/dannyrandall/moviecatalog/internal/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.HTTP.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	svcName := copilot.ServiceName("movies")
	zapLogger = zapLogger.With(zap.String("service", svcName))

	if cfg.Tracing.Enabled {
		shutdown, err := otel.SetupTracer(appCtx, svcName)
		if err != nil {
			zapLogger.Fatal("unable to setup otel tracer", zap.Error(err))
		}
		manager.Register("tracer", func(ctx context.Context) error {
			return shutdown(ctx)
		})
	}

	m := metrics.New()
	policy := retry.Fixed(cfg.Retry.MaxAttempts, cfg.Retry.Delay, movies.IsRetryable)

	infos := client.NewMovieInfoClient(client.Config{
		BaseURL: cfg.Upstream.MovieInfoURL,
		Policy:  policy,
		Logger:  zapLogger,
		Metrics: m,
	})
	reviews := client.NewReviewClient(client.Config{
		BaseURL: cfg.Upstream.ReviewsURL,
		Policy:  policy,
		Logger:  zapLogger,
		Metrics: m,
	})

	movieInfos := broadcast.New[movies.MovieInfo](cfg.Broadcast.HistorySize)
	relay := gateway.NewRelay(infos, movieInfos, cfg.Retry.Delay, cfg.Broadcast.HistorySize, zapLogger, m)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		_ = relay.Run(appCtx)
	}()
	manager.Register("relay", func(ctx context.Context) error {
		select {
		case <-relayDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	mux := http.NewServeMux()
	handlers.RegisterOps(mux, m)
	(&handlers.Movies{
		Movies:     gateway.New(infos, reviews, zapLogger),
		MovieInfos: movieInfos,
		Logger:     zapLogger,
		Metrics:    m,
		Timeout:    cfg.HTTP.RequestTimeout,
	}).Register(mux)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           otelhttp.NewHandler(mux, "movies"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Open streams only end once their channel is closed.
	server.RegisterOnShutdown(movieInfos.Close)

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()),
			zap.String("movieInfoUrl", cfg.Upstream.MovieInfoURL), zap.String("reviewsUrl", cfg.Upstream.ReviewsURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", server.Shutdown)

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
