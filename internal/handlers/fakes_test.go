package handlers

import (
	"context"
	"sort"
	"sync"

	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/store"
)

type memMovieInfos struct {
	mu    sync.Mutex
	items map[string]movies.MovieInfo
	err   error
}

func newMemMovieInfos(infos ...movies.MovieInfo) *memMovieInfos {
	m := &memMovieInfos{items: map[string]movies.MovieInfo{}}
	for _, info := range infos {
		m.items[info.ID] = info
	}
	return m
}

func (m *memMovieInfos) Save(_ context.Context, info movies.MovieInfo) (movies.MovieInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return movies.MovieInfo{}, m.err
	}
	if info.ID == "" {
		info.ID = movies.NewID()
	}
	m.items[info.ID] = info
	return info, nil
}

func (m *memMovieInfos) FindByID(_ context.Context, id string) (movies.MovieInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.items[id]
	if !ok {
		return movies.MovieInfo{}, store.ErrNotFound
	}
	return info, nil
}

func (m *memMovieInfos) FindAll(ctx context.Context) ([]movies.MovieInfo, error) {
	return m.filter(func(movies.MovieInfo) bool { return true }), nil
}

func (m *memMovieInfos) FindByYear(_ context.Context, year int) ([]movies.MovieInfo, error) {
	return m.filter(func(info movies.MovieInfo) bool { return info.Year == year }), nil
}

func (m *memMovieInfos) filter(keep func(movies.MovieInfo) bool) []movies.MovieInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []movies.MovieInfo
	for _, info := range m.items {
		if keep(info) {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memMovieInfos) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memReviews struct {
	mu    sync.Mutex
	items map[string]movies.Review
}

func newMemReviews(reviews ...movies.Review) *memReviews {
	m := &memReviews{items: map[string]movies.Review{}}
	for _, review := range reviews {
		m.items[review.ID] = review
	}
	return m
}

func (m *memReviews) Save(_ context.Context, review movies.Review) (movies.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if review.ID == "" {
		review.ID = movies.NewID()
	}
	m.items[review.ID] = review
	return review, nil
}

func (m *memReviews) FindByID(_ context.Context, id string) (movies.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.items[id]
	if !ok {
		return movies.Review{}, store.ErrNotFound
	}
	return review, nil
}

func (m *memReviews) FindAll(context.Context) ([]movies.Review, error) {
	return m.filter(func(movies.Review) bool { return true }), nil
}

func (m *memReviews) FindByMovieInfoID(_ context.Context, movieInfoID string) ([]movies.Review, error) {
	return m.filter(func(r movies.Review) bool { return r.MovieInfoID == movieInfoID }), nil
}

func (m *memReviews) filter(keep func(movies.Review) bool) []movies.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []movies.Review
	for _, review := range m.items {
		if keep(review) {
			out = append(out, review)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memReviews) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}
