package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// ReviewClient calls the review service at {BaseURL}?movieInfoId={id}.
type ReviewClient struct {
	remote
}

func NewReviewClient(cfg Config) *ReviewClient {
	return &ReviewClient{remote: newRemote(movies.DependencyReviews, cfg)}
}

// RetrieveReviews lists the reviews of a movie. No reviews, a 404 and a 204
// all yield an empty, non-nil slice and no error.
func (c *ReviewClient) RetrieveReviews(ctx context.Context, movieInfoID string) ([]movies.Review, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse reviews url: %w", err)
	}
	q := u.Query()
	q.Set("movieInfoId", movieInfoID)
	u.RawQuery = q.Encode()

	return get(ctx, c.remote, u.String(), func(status int, body []byte) ([]movies.Review, error) {
		switch {
		case status == http.StatusNotFound || status == http.StatusNoContent:
			return []movies.Review{}, nil
		case isSuccess(status):
			reviews := []movies.Review{}
			if len(bytes.TrimSpace(body)) == 0 {
				return reviews, nil
			}
			if err := json.Unmarshal(body, &reviews); err != nil {
				return nil, fmt.Errorf("decode reviews for %q: %w", movieInfoID, err)
			}
			if reviews == nil {
				reviews = []movies.Review{}
			}
			return reviews, nil
		case isClientError(status):
			return nil, &movies.ClientError{Dependency: c.dependency, Message: string(body), StatusCode: status}
		case isServerError(status):
			return nil, &movies.ServerError{Dependency: c.dependency, Message: "Server Error Exception in ReviewsService " + string(body)}
		default:
			return nil, fmt.Errorf("unexpected status %d from review service", status)
		}
	})
}
