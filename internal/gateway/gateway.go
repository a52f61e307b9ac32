// Package gateway combines a movie's info and its reviews into a single
// Movie, and relays newly created movie infos to stream subscribers.
package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// MovieInfoSource fetches a single movie info. It is the primary dependency.
type MovieInfoSource interface {
	RetrieveMovieInfo(ctx context.Context, id string) (movies.MovieInfo, error)
}

// ReviewSource lists the reviews of a movie. Absence must be reported as an
// empty slice, not an error.
type ReviewSource interface {
	RetrieveReviews(ctx context.Context, movieInfoID string) ([]movies.Review, error)
}

type Gateway struct {
	infos   MovieInfoSource
	reviews ReviewSource
	logger  *zap.Logger
}

func New(infos MovieInfoSource, reviews ReviewSource, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		infos:   infos,
		reviews: reviews,
		logger:  logger,
	}
}

// GetMovie fetches the movie info for id and, only once that succeeded, its
// reviews. Any movie info failure is returned as is and the reviews are never
// requested. A review failure other than absence fails the whole call.
func (g *Gateway) GetMovie(ctx context.Context, id string) (movies.Movie, error) {
	log := logger.WithTrace(ctx, g.logger).With(zap.String("movie_info_id", id))

	info, err := g.infos.RetrieveMovieInfo(ctx, id)
	if err != nil {
		log.Info("movie info unavailable", zap.Error(err))
		return movies.Movie{}, err
	}

	reviews, err := g.reviews.RetrieveReviews(ctx, id)
	if err != nil {
		log.Info("reviews unavailable", zap.Error(err))
		return movies.Movie{}, err
	}

	log.Debug("aggregated movie", zap.Int("reviews", len(reviews)))
	return movies.NewMovie(info, reviews), nil
}
