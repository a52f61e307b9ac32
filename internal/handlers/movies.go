package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/broadcast"
	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// MovieGetter is satisfied by *gateway.Gateway.
type MovieGetter interface {
	GetMovie(ctx context.Context, id string) (movies.Movie, error)
}

// Movies serves the gateway's /v1/movies API.
type Movies struct {
	Movies MovieGetter
	// MovieInfos is fed by the gateway relay.
	MovieInfos *broadcast.Channel[movies.MovieInfo]
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Timeout    time.Duration
}

func (h *Movies) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/movies/{id}", h.get)
	mux.HandleFunc("GET /v1/movies/movieinfos/stream", h.stream)
}

func (h *Movies) get(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	id := r.PathValue("id")
	log.Debug("getting movie", zap.String("movieInfoId", id))

	movie, err := h.Movies.GetMovie(ctx, id)
	if err != nil {
		httpError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, movie)
}

func (h *Movies) stream(w http.ResponseWriter, r *http.Request) {
	streamNDJSON(w, r, h.MovieInfos, "movies", logger.ForRequest(h.Logger, r), h.Metrics)
}
