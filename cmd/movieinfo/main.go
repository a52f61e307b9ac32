package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/broadcast"
	"github.com/dannyrandall/moviecatalog/internal/config"
	"github.com/dannyrandall/moviecatalog/internal/copilot"
	"github.com/dannyrandall/moviecatalog/internal/handlers"
	"github.com/dannyrandall/moviecatalog/internal/lifecycle"
	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/otel"
	"github.com/dannyrandall/moviecatalog/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.Tables.MovieInfos == "" {
		log.Fatalf("MOVIEINFOS_NAME is not set")
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

	svcName := copilot.ServiceName("movieinfo")
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

	awsCfg, err := awsconfig.LoadDefaultConfig(appCtx)
	if err != nil {
		zapLogger.Fatal("unable to load aws config", zap.Error(err))
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	zapLogger.Info("using DynamoDB movie infos table", zap.String("table", cfg.Tables.MovieInfos))

	m := metrics.New()
	events := broadcast.New[movies.MovieInfo](cfg.Broadcast.HistorySize)

	mux := http.NewServeMux()
	handlers.RegisterOps(mux, m)
	(&handlers.MovieInfo{
		Store:   store.NewMovieInfoStore(dynamodb.NewFromConfig(awsCfg), cfg.Tables.MovieInfos),
		Events:  events,
		Logger:  zapLogger,
		Metrics: m,
		Timeout: cfg.HTTP.RequestTimeout,
	}).Register(mux)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           otelhttp.NewHandler(mux, "movieinfos"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	server.RegisterOnShutdown(events.Close)

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
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
