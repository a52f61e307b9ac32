// Package client calls the movie info and review services. Each call turns
// the HTTP response into either a decoded value or a typed failure from the
// movies package, and is retried under a fixed-delay policy when the failure
// is retryable.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/retry"
)

// Config configures one downstream dependency.
type Config struct {
	BaseURL string
	// HTTP defaults to otelhttp.DefaultClient.
	HTTP *http.Client
	// Policy.Retryable defaults to movies.IsRetryable.
	Policy  retry.Policy
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// remote holds what both wrappers share. It keeps no state between calls.
type remote struct {
	dependency string
	baseURL    string
	http       *http.Client
	policy     retry.Policy
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func newRemote(dependency string, cfg Config) remote {
	r := remote{
		dependency: dependency,
		baseURL:    cfg.BaseURL,
		http:       cfg.HTTP,
		policy:     cfg.Policy,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	if r.http == nil {
		r.http = otelhttp.DefaultClient
	}
	if r.policy.Retryable == nil {
		r.policy.Retryable = movies.IsRetryable
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// get issues GET url under the retry policy, one fresh request per attempt.
// classify turns each complete response into a value or a typed failure.
func get[T any](ctx context.Context, r remote, url string, classify func(status int, body []byte) (T, error)) (T, error) {
	log := logger.WithTrace(ctx, r.logger).With(zap.String("dependency", r.dependency), zap.String("url", url))

	p := r.policy
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.metrics.DownstreamRetry(r.dependency)
		log.Warn("retrying downstream call", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	v, err := retry.Do(ctx, p, func(ctx context.Context) (T, error) {
		var zero T
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return zero, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := r.http.Do(req)
		if err != nil {
			r.metrics.DownstreamRequest(r.dependency, "transport_error")
			return zero, &movies.TransportError{Dependency: r.dependency, Op: "get " + url, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			r.metrics.DownstreamRequest(r.dependency, "transport_error")
			return zero, &movies.TransportError{Dependency: r.dependency, Op: "read response body", Err: err}
		}

		v, err := classify(resp.StatusCode, body)
		r.metrics.DownstreamRequest(r.dependency, outcome(err))
		return v, err
	})
	if err != nil {
		log.Error("downstream call failed", zap.Error(err))
	}
	return v, err
}

func outcome(err error) string {
	var (
		notFound  *movies.NotFoundError
		clientErr *movies.ClientError
		serverErr *movies.ServerError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &clientErr):
		return "client_error"
	case errors.As(err, &serverErr):
		return "server_error"
	default:
		return "error"
	}
}

func isSuccess(status int) bool {
	return status/100 == 2
}

func isClientError(status int) bool {
	return status/100 == 4
}

func isServerError(status int) bool {
	return status/100 == 5
}
