package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/broadcast"
	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/store"
)

const movieInfoStream = "movieinfos"

type MovieInfoRepository interface {
	Save(ctx context.Context, info movies.MovieInfo) (movies.MovieInfo, error)
	FindByID(ctx context.Context, id string) (movies.MovieInfo, error)
	FindAll(ctx context.Context) ([]movies.MovieInfo, error)
	FindByYear(ctx context.Context, year int) ([]movies.MovieInfo, error)
	Delete(ctx context.Context, id string) error
}

// MovieInfo serves /v1/movieinfos. Every created record is published to Events.
type MovieInfo struct {
	Store   MovieInfoRepository
	Events  *broadcast.Channel[movies.MovieInfo]
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Timeout time.Duration
}

func (h *MovieInfo) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/movieinfos", h.create)
	mux.HandleFunc("GET /v1/movieinfos", h.list)
	mux.HandleFunc("GET /v1/movieinfos/stream", h.stream)
	mux.HandleFunc("GET /v1/movieinfos/{id}", h.get)
	mux.HandleFunc("PUT /v1/movieinfos/{id}", h.update)
	mux.HandleFunc("DELETE /v1/movieinfos/{id}", h.delete)
}

func (h *MovieInfo) create(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	var info movies.MovieInfo
	if err := decodeBody(r, "movie info", &info); err != nil {
		httpError(w, log, err)
		return
	}
	if err := movies.ValidateMovieInfo(info); err != nil {
		httpError(w, log, err)
		return
	}

	saved, err := h.Store.Save(ctx, info)
	if err != nil {
		httpError(w, log, err)
		return
	}
	log.Info("created movie info", zap.String("movieInfoId", saved.ID))

	publish(h.Events, movieInfoStream, saved, log, h.Metrics)
	writeJSON(w, log, http.StatusCreated, saved)
}

func (h *MovieInfo) list(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	var (
		infos []movies.MovieInfo
		err   error
	)
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, convErr := strconv.Atoi(raw)
		if convErr != nil {
			httpError(w, log, &movies.ValidationError{Messages: []string{"year must be a number"}})
			return
		}
		infos, err = h.Store.FindByYear(ctx, year)
	} else {
		infos, err = h.Store.FindAll(ctx)
	}
	if err != nil {
		httpError(w, log, err)
		return
	}
	if infos == nil {
		infos = []movies.MovieInfo{}
	}
	writeJSON(w, log, http.StatusOK, infos)
}

func (h *MovieInfo) get(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	info, err := h.Store.FindByID(ctx, r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		return
	case err != nil:
		httpError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, info)
}

func (h *MovieInfo) update(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	var in movies.MovieInfo
	if err := decodeBody(r, "movie info", &in); err != nil {
		httpError(w, log, err)
		return
	}
	if err := movies.ValidateMovieInfo(in); err != nil {
		httpError(w, log, err)
		return
	}

	existing, err := h.Store.FindByID(ctx, r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		return
	case err != nil:
		httpError(w, log, err)
		return
	}

	existing.Name = in.Name
	existing.Year = in.Year
	existing.Cast = in.Cast
	existing.ReleaseDate = in.ReleaseDate

	saved, err := h.Store.Save(ctx, existing)
	if err != nil {
		httpError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, saved)
}

func (h *MovieInfo) delete(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	if err := h.Store.Delete(ctx, r.PathValue("id")); err != nil {
		httpError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MovieInfo) stream(w http.ResponseWriter, r *http.Request) {
	streamNDJSON(w, r, h.Events, movieInfoStream, logger.ForRequest(h.Logger, r), h.Metrics)
}
