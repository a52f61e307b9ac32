package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannyrandall/moviecatalog/internal/metrics"
	"github.com/dannyrandall/moviecatalog/internal/movies"
	"github.com/dannyrandall/moviecatalog/internal/retry"
)

const batmanBegins = `{"movieInfoId":"abc","name":"Batman Begins","year":2005,"cast":["Christian Bale","Michael Cane"],"releaseDate":"2005-06-15"}`

// stub answers every request with status and body and counts the hits.
type stub struct {
	hits    atomic.Int32
	status  int
	body    string
	lastURL atomic.Value
}

func newStub(t *testing.T, status int, body string) (*stub, *httptest.Server) {
	t.Helper()
	s := &stub{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.lastURL.Store(r.URL.String())
		w.WriteHeader(s.status)
		_, _ = io.WriteString(w, s.body)
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		HTTP:    http.DefaultClient,
		Policy:  retry.Fixed(4, time.Millisecond, nil),
		Metrics: metrics.New(),
	}
}

func TestRetrieveMovieInfo_OK(t *testing.T) {
	s, srv := newStub(t, http.StatusOK, batmanBegins)
	c := NewMovieInfoClient(testConfig(srv.URL + "/v1/movieinfos"))

	info, err := c.RetrieveMovieInfo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Batman Begins", info.Name)
	assert.Equal(t, []string{"Christian Bale", "Michael Cane"}, info.Cast)
	assert.Equal(t, "/v1/movieinfos/abc", s.lastURL.Load())
	assert.EqualValues(t, 1, s.hits.Load())
}

func TestRetrieveMovieInfo_NotFoundIsTerminal(t *testing.T) {
	s, srv := newStub(t, http.StatusNotFound, "")
	c := NewMovieInfoClient(testConfig(srv.URL))

	_, err := c.RetrieveMovieInfo(context.Background(), "abc")

	var notFound *movies.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "There is no movie available for id abc", err.Error())
	assert.Equal(t, movies.DependencyMovieInfo, notFound.Dependency)
	assert.EqualValues(t, 1, s.hits.Load())
}

func TestRetrieveMovieInfo_ClientErrorNotRetried(t *testing.T) {
	s, srv := newStub(t, http.StatusBadRequest, "bad id")
	c := NewMovieInfoClient(testConfig(srv.URL))

	_, err := c.RetrieveMovieInfo(context.Background(), "abc")

	var clientErr *movies.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "bad id", clientErr.Message)
	assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
	assert.EqualValues(t, 1, s.hits.Load())
}

func TestRetrieveMovieInfo_ServerErrorRetriedUntilExhausted(t *testing.T) {
	s, srv := newStub(t, http.StatusInternalServerError, "MovieInfo Service Unavailable")
	c := NewMovieInfoClient(testConfig(srv.URL))

	_, err := c.RetrieveMovieInfo(context.Background(), "abc")

	var serverErr *movies.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "Server Error Exception in MovieInfoServiceMovieInfo Service Unavailable", err.Error())
	assert.EqualValues(t, 4, s.hits.Load())
}

func TestRetrieveMovieInfo_RecoversAfterServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, batmanBegins)
	}))
	defer srv.Close()
	c := NewMovieInfoClient(testConfig(srv.URL))

	info, err := c.RetrieveMovieInfo(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 2005, info.Year)
	assert.EqualValues(t, 3, hits.Load())
}

func TestRetrieveMovieInfo_TransportErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	cfg := testConfig(base)
	attempts := 0
	cfg.Policy.Retryable = func(err error) bool {
		attempts++
		return movies.IsRetryable(err)
	}
	c := NewMovieInfoClient(cfg)

	_, err := c.RetrieveMovieInfo(context.Background(), "abc")

	var transportErr *movies.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, http.StatusInternalServerError, movies.StatusCode(err))
}

func TestRetrieveMovieInfo_MalformedBodyNotRetried(t *testing.T) {
	s, srv := newStub(t, http.StatusOK, "{not json")
	c := NewMovieInfoClient(testConfig(srv.URL))

	_, err := c.RetrieveMovieInfo(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, movies.IsRetryable(err))
	assert.EqualValues(t, 1, s.hits.Load())
}

func TestRetrieveMovieInfo_CancelledContextStopsRetries(t *testing.T) {
	s, srv := newStub(t, http.StatusInternalServerError, "down")
	cfg := testConfig(srv.URL)
	cfg.Policy = retry.Fixed(4, time.Hour, nil)
	c := NewMovieInfoClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.RetrieveMovieInfo(ctx, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, s.hits.Load())
}

func TestRetrieveReviews_OK(t *testing.T) {
	s, srv := newStub(t, http.StatusOK, `[{"reviewId":"1","movieInfoId":"abc","comment":"Awesome Movie","rating":9.0},{"reviewId":"2","movieInfoId":"abc","comment":"Excellent Movie","rating":8.0}]`)
	c := NewReviewClient(testConfig(srv.URL + "/v1/reviews"))

	reviews, err := c.RetrieveReviews(context.Background(), "abc")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, "/v1/reviews?movieInfoId=abc", s.lastURL.Load())
}

func TestRetrieveReviews_AbsenceIsEmptySuccess(t *testing.T) {
	for _, tc := range []struct {
		status int
		body   string
	}{
		{http.StatusNotFound, ""},
		{http.StatusNoContent, ""},
		{http.StatusOK, "[]"},
		{http.StatusOK, ""},
		{http.StatusOK, "null"},
	} {
		t.Run(fmt.Sprintf("%d %q", tc.status, tc.body), func(t *testing.T) {
			s, srv := newStub(t, tc.status, tc.body)
			c := NewReviewClient(testConfig(srv.URL))

			reviews, err := c.RetrieveReviews(context.Background(), "abc")
			require.NoError(t, err)
			assert.NotNil(t, reviews)
			assert.Empty(t, reviews)
			assert.EqualValues(t, 1, s.hits.Load())
		})
	}
}

func TestRetrieveReviews_ServerErrorRetriedUntilExhausted(t *testing.T) {
	s, srv := newStub(t, http.StatusInternalServerError, "Review Service Not Available")
	c := NewReviewClient(testConfig(srv.URL))

	_, err := c.RetrieveReviews(context.Background(), "abc")

	var serverErr *movies.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "Server Error Exception in ReviewsService Review Service Not Available", err.Error())
	assert.Equal(t, movies.DependencyReviews, movies.Dependency(err))
	assert.EqualValues(t, 4, s.hits.Load())
}

func TestRetrieveReviews_ClientError(t *testing.T) {
	s, srv := newStub(t, http.StatusBadRequest, "movieInfoId must be numeric")
	c := NewReviewClient(testConfig(srv.URL))

	_, err := c.RetrieveReviews(context.Background(), "abc")

	var clientErr *movies.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadRequest, movies.StatusCode(err))
	assert.EqualValues(t, 1, s.hits.Load())
}

func TestStreamMovieInfos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/movieinfos/stream", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"movieInfoId":"a","name":"A","year":2001}`+"\n"+`{"movieInfoId":"b","name":"B","year":2002}`+"\n")
	}))
	defer srv.Close()
	c := NewMovieInfoClient(testConfig(srv.URL + "/v1/movieinfos"))

	var got []string
	err := c.StreamMovieInfos(context.Background(), func(info movies.MovieInfo) error {
		got = append(got, info.ID)
		return nil
	})

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestStreamMovieInfos_StatusAndCallbackErrors(t *testing.T) {
	_, failing := newStub(t, http.StatusServiceUnavailable, "starting up")
	err := NewMovieInfoClient(testConfig(failing.URL)).StreamMovieInfos(context.Background(), func(movies.MovieInfo) error { return nil })
	var serverErr *movies.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "starting up", serverErr.Message)

	_, ok := newStub(t, http.StatusOK, `{"movieInfoId":"a"}`+"\n")
	stop := errors.New("stop")
	err = NewMovieInfoClient(testConfig(ok.URL)).StreamMovieInfos(context.Background(), func(movies.MovieInfo) error { return stop })
	assert.Same(t, stop, err)
}
