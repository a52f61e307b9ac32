// Package handlers serves the HTTP APIs of the movie info, review and
// gateway services.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/broadcast"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// HeaderFailedDependency names the downstream dependency a gateway error came from.
const HeaderFailedDependency = "X-Failed-Dependency"

const defaultTimeout = 10 * time.Second

// RegisterOps adds the health check and metrics endpoints every service exposes.
func RegisterOps(mux *http.ServeMux, m *metrics.Metrics) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", m.Handler())
}

func requestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", zap.Error(err))
	}
}

// httpError writes err's message verbatim as a text/plain body with the
// status movies.StatusCode chooses for it.
func httpError(w http.ResponseWriter, log *zap.Logger, err error) {
	code := movies.StatusCode(err)
	if dep := movies.Dependency(err); dep != "" {
		w.Header().Set(HeaderFailedDependency, dep)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, err.Error())

	if code >= http.StatusInternalServerError {
		log.Error("returning error", zap.Int("status", code), zap.Error(err))
		return
	}
	log.Info("returning error", zap.Int("status", code), zap.Error(err))
}

func decodeBody(r *http.Request, what string, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &movies.ValidationError{Messages: []string{fmt.Sprintf("decode %s: %s", what, err)}}
	}
	return nil
}

// publish hands v to ch. Failures are logged and counted, never returned.
func publish[T any](ch *broadcast.Channel[T], stream string, v T, log *zap.Logger, m *metrics.Metrics) {
	if err := ch.Publish(v); err != nil {
		m.PublishFailed(stream)
		log.Error("publish to stream", zap.String("stream", stream), zap.Error(err))
		return
	}
	m.Published(stream)
}

// streamNDJSON writes every record of a fresh subscription to ch as one JSON
// document per line until the client goes away or the channel ends.
func streamNDJSON[T any](w http.ResponseWriter, r *http.Request, ch *broadcast.Channel[T], stream string, log *zap.Logger, m *metrics.Metrics) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, log, errors.New("streaming is not supported"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	detach := m.SubscriberAttached(stream)
	defer detach()

	log = log.With(zap.String("stream", stream))
	log.Info("subscriber attached")

	sub := ch.Subscribe()
	enc := json.NewEncoder(w)
	for {
		v, err := sub.Next(r.Context())
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			log.Info("subscriber detached")
			return
		case errors.Is(err, broadcast.ErrLagged):
			log.Warn("subscriber fell behind retained history", zap.Error(err))
			return
		default:
			log.Info("stream ended", zap.Error(err))
			return
		}

		if err := enc.Encode(v); err != nil {
			log.Info("write to subscriber", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}
