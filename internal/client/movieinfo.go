package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// MovieInfoClient calls the movie info service at {BaseURL}/{id} and {BaseURL}/stream.
type MovieInfoClient struct {
	remote
}

func NewMovieInfoClient(cfg Config) *MovieInfoClient {
	return &MovieInfoClient{remote: newRemote(movies.DependencyMovieInfo, cfg)}
}

// RetrieveMovieInfo fetches a single movie info. A 404 is a terminal
// *movies.NotFoundError.
func (c *MovieInfoClient) RetrieveMovieInfo(ctx context.Context, id string) (movies.MovieInfo, error) {
	u := strings.TrimSuffix(c.baseURL, "/") + "/" + url.PathEscape(id)
	return get(ctx, c.remote, u, func(status int, body []byte) (movies.MovieInfo, error) {
		var info movies.MovieInfo
		switch {
		case isSuccess(status):
			if err := json.Unmarshal(body, &info); err != nil {
				return info, fmt.Errorf("decode movie info %q: %w", id, err)
			}
			return info, nil
		case status == http.StatusNotFound:
			return info, &movies.NotFoundError{
				Dependency: c.dependency,
				Resource:   "movie info",
				ID:         id,
				Message:    "There is no movie available for id " + id,
			}
		default:
			return info, c.statusError(status, body, "Server Error Exception in MovieInfoService")
		}
	})
}

// StreamMovieInfos opens one connection to the NDJSON stream and calls fn for
// every record until the stream ends, fn fails, or ctx is done. It never
// returns nil: a stream that ends normally yields io.EOF.
func (c *MovieInfoClient) StreamMovieInfos(ctx context.Context, fn func(movies.MovieInfo) error) error {
	u := strings.TrimSuffix(c.baseURL, "/") + "/stream"
	log := logger.WithTrace(ctx, c.logger).With(zap.String("dependency", c.dependency), zap.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return &movies.TransportError{Dependency: c.dependency, Op: "get " + u, Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		return c.statusError(resp.StatusCode, body, "")
	}

	log.Info("following movie info stream")
	dec := json.NewDecoder(resp.Body)
	for {
		var info movies.MovieInfo
		if err := dec.Decode(&info); err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &movies.TransportError{Dependency: c.dependency, Op: "decode stream", Err: err}
		}
		if err := fn(info); err != nil {
			return err
		}
	}
}

func (c *MovieInfoClient) statusError(status int, body []byte, serverPrefix string) error {
	switch {
	case isClientError(status):
		return &movies.ClientError{Dependency: c.dependency, Message: string(body), StatusCode: status}
	case isServerError(status):
		return &movies.ServerError{Dependency: c.dependency, Message: serverPrefix + string(body)}
	default:
		return fmt.Errorf("unexpected status %d from movie info service", status)
	}
}
