package movies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Names of the downstream dependencies a failure can originate from.
const (
	DependencyMovieInfo = "movieinfo"
	DependencyReviews   = "reviews"
)

// NotFoundError reports that a resource does not exist.
type NotFoundError struct {
	Dependency string
	Resource   string
	ID         string
	Message    string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ClientError is a non-retryable 4xx failure other than 404.
type ClientError struct {
	Dependency string
	Message    string
	StatusCode int
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError is a 5xx failure. It is retryable.
type ServerError struct {
	Dependency string
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// TransportError is a failure to get any response at all. It is retryable.
type TransportError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError holds the constraint violations of a request body.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// IsRetryable reports whether err is a failure kind worth another attempt.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var serverErr *ServerError
	var transportErr *TransportError
	return errors.As(err, &serverErr) || errors.As(err, &transportErr)
}

// StatusCode maps err to the HTTP status a handler should answer with.
func StatusCode(err error) int {
	var (
		notFound   *NotFoundError
		clientErr  *ClientError
		validation *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &clientErr):
		return clientErr.StatusCode
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Dependency returns the downstream dependency err originated from, if any.
func Dependency(err error) string {
	var (
		notFound  *NotFoundError
		clientErr *ClientError
		serverErr *ServerError
		transport *TransportError
	)
	switch {
	case errors.As(err, &notFound):
		return notFound.Dependency
	case errors.As(err, &clientErr):
		return clientErr.Dependency
	case errors.As(err, &serverErr):
		return serverErr.Dependency
	case errors.As(err, &transport):
		return transport.Dependency
	}
	return ""
}
