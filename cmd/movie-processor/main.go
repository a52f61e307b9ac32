package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/config"
	"github.com/dannyrandall/moviecatalog/internal/copilot"
	"github.com/dannyrandall/moviecatalog/internal/lifecycle"
	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/moviequeue"
	"github.com/dannyrandall/moviecatalog/internal/otel"
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

	svcName := copilot.ServiceName("movie-processor")
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

	q := &moviequeue.Queue{
		SQS:                sqs.NewFromConfig(awsCfg),
		QueueName:          fmt.Sprintf("%s-%s-createMovieInfo", copilot.App(), copilot.Environment()),
		QueueURL:           copilot.QueueURI(),
		CreateMovieInfoURL: cfg.Upstream.MovieInfoURL,
		ErrorDelay:         cfg.Retry.Delay,
		Logger:             zapLogger,
	}
	if q.QueueURL == "" {
		zapLogger.Fatal("COPILOT_QUEUE_URI is not set")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		zapLogger.Info("waiting for events", zap.String("queueUrl", q.QueueURL), zap.String("createUrl", q.CreateMovieInfoURL))
		if err := q.ReceiveAndProcess(appCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("unable to receive and process", zap.Error(err))
			cancel()
		}
	}()
	manager.Register("queue", func(ctx context.Context) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
