package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/broadcast"
	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/store"
)

const reviewStream = "reviews"

type ReviewRepository interface {
	Save(ctx context.Context, review movies.Review) (movies.Review, error)
	FindByID(ctx context.Context, id string) (movies.Review, error)
	FindAll(ctx context.Context) ([]movies.Review, error)
	FindByMovieInfoID(ctx context.Context, movieInfoID string) ([]movies.Review, error)
	Delete(ctx context.Context, id string) error
}

// Reviews serves /v1/reviews. Every created review is published to Events.
type Reviews struct {
	Store   ReviewRepository
	Events  *broadcast.Channel[movies.Review]
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Timeout time.Duration
}

func (h *Reviews) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/reviews", h.create)
	mux.HandleFunc("GET /v1/reviews", h.list)
	mux.HandleFunc("GET /v1/reviews/stream", h.stream)
	mux.HandleFunc("PUT /v1/reviews/{id}", h.update)
	mux.HandleFunc("DELETE /v1/reviews/{id}", h.delete)
}

func (h *Reviews) create(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	var review movies.Review
	if err := decodeBody(r, "review", &review); err != nil {
		httpError(w, log, err)
		return
	}
	if err := movies.ValidateReview(review); err != nil {
		httpError(w, log, err)
		return
	}

	saved, err := h.Store.Save(ctx, review)
	if err != nil {
		httpError(w, log, err)
		return
	}
	log.Info("created review", zap.String("reviewId", saved.ID), zap.String("movieInfoId", saved.MovieInfoID))

	publish(h.Events, reviewStream, saved, log, h.Metrics)
	writeJSON(w, log, http.StatusCreated, saved)
}

func (h *Reviews) list(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	var (
		reviews []movies.Review
		err     error
	)
	if id := r.URL.Query().Get("movieInfoId"); id != "" {
		reviews, err = h.Store.FindByMovieInfoID(ctx, id)
	} else {
		reviews, err = h.Store.FindAll(ctx)
	}
	if err != nil {
		httpError(w, log, err)
		return
	}
	if reviews == nil {
		reviews = []movies.Review{}
	}
	writeJSON(w, log, http.StatusOK, reviews)
}

// update replaces the comment and rating of an existing review.
func (h *Reviews) update(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	id := r.PathValue("id")

	var in movies.Review
	if err := decodeBody(r, "review", &in); err != nil {
		httpError(w, log, err)
		return
	}

	existing, err := h.Store.FindByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpError(w, log, &movies.NotFoundError{
			Resource: "review",
			ID:       id,
			Message:  fmt.Sprintf("Review not found for the given review id = %s", id),
		})
		return
	case err != nil:
		httpError(w, log, err)
		return
	}

	existing.Comment = in.Comment
	existing.Rating = in.Rating

	saved, err := h.Store.Save(ctx, existing)
	if err != nil {
		httpError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, saved)
}

func (h *Reviews) delete(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.Logger, r)
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	if err := h.Store.Delete(ctx, r.PathValue("id")); err != nil {
		httpError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Reviews) stream(w http.ResponseWriter, r *http.Request) {
	streamNDJSON(w, r, h.Events, reviewStream, logger.ForRequest(h.Logger, r), h.Metrics)
}
