// Package retry runs an operation under a fixed-delay, bounded-attempt policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy decides how often and how far apart an operation is attempted.
type Policy struct {
	// MaxAttempts counts the first attempt. Values below 1 mean a single attempt.
	MaxAttempts int
	// Delay is the fixed wait between two attempts.
	Delay time.Duration
	// Retryable selects the failures worth another attempt. Nil retries nothing.
	Retryable func(error) bool
	// OnRetry, if set, is called before each wait with the failed attempt number.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Fixed returns a Policy of maxAttempts attempts spaced by delay.
func Fixed(maxAttempts int, delay time.Duration, retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Retryable:   retryable,
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. The error returned is the one produced by the
// last attempt, unwrapped. Cancelling ctx stops any pending wait and returns
// the context error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && (p.Retryable == nil || !p.Retryable(err)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}
