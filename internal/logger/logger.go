// Package logger builds the zap loggers used by every movie service.
package logger

import (
	"context"
	"net/http"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dannyrandall/moviecatalog/internal/otel"
)

type Config struct {
	Level    string
	Encoding string
}

// New builds a zap.Logger writing to stdout.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	return zap.New(core, zap.AddCaller()), nil
}

// ForRequest returns base enriched with the request line and the X-Ray
// formatted id of the span carried by r's context.
func ForRequest(base *zap.Logger, r *http.Request) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return WithTrace(r.Context(), base).With(
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

// WithTrace adds the trace id of the span in ctx, if there is a valid one.
func WithTrace(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return base
	}
	return base.With(zap.String("xray_trace_id", otel.XRayTraceID(span)))
}
