package gateway

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// MovieInfoStream follows the movie info service's creation stream.
type MovieInfoStream interface {
	StreamMovieInfos(ctx context.Context, fn func(movies.MovieInfo) error) error
}

// Publisher accepts records for broadcast.
type Publisher interface {
	Publish(movies.MovieInfo) error
}

// Relay republishes the upstream creation stream into a local broadcast
// channel. Upstream replays its whole history on every reconnect, so records
// already relayed are recognised by id and skipped.
type Relay struct {
	stream  MovieInfoStream
	out     Publisher
	delay   time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics

	// seen and order are only touched by the Run goroutine.
	maxSeen int
	seen    map[string]struct{}
	order   []string
}

// NewRelay creates a Relay that waits delay between reconnects and remembers
// at most maxSeen ids (unbounded when maxSeen <= 0).
func NewRelay(stream MovieInfoStream, out Publisher, delay time.Duration, maxSeen int, logger *zap.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		stream:  stream,
		out:     out,
		delay:   delay,
		logger:  logger,
		metrics: m,
		maxSeen: maxSeen,
		seen:    make(map[string]struct{}),
	}
}

// Run follows the upstream stream, reconnecting after every failure, until
// ctx is done. It returns ctx's error.
func (r *Relay) Run(ctx context.Context) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(r.delay), ctx)

	follow := func() error {
		err := r.stream.StreamMovieInfos(ctx, r.publish)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if errors.Is(err, io.EOF) {
			r.logger.Info("movie info stream ended, reconnecting", zap.Duration("wait", wait))
			return
		}
		r.logger.Warn("movie info stream failed, reconnecting", zap.Duration("wait", wait), zap.Error(err))
	}

	return backoff.RetryNotify(follow, b, notify)
}

func (r *Relay) publish(info movies.MovieInfo) error {
	if info.ID != "" {
		if _, ok := r.seen[info.ID]; ok {
			return nil
		}
		r.remember(info.ID)
	}

	if err := r.out.Publish(info); err != nil {
		r.metrics.PublishFailed("movies")
		r.logger.Error("unable to relay movie info", zap.String("movieInfoId", info.ID), zap.Error(err))
		return nil
	}
	r.metrics.Published("movies")
	return nil
}

func (r *Relay) remember(id string) {
	r.seen[id] = struct{}{}
	r.order = append(r.order, id)
	if r.maxSeen > 0 && len(r.order) > r.maxSeen {
		delete(r.seen, r.order[0])
		r.order = r.order[1:]
	}
}
