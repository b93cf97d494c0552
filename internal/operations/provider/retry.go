package provider

import (
	"context"
	"math"
	"time"
)

// RetryPolicy bounds retries on read paths.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy retries three times starting at 100ms.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Backoff: 100 * time.Millisecond}

// Retry runs fn until it succeeds, returns a non-transient error, or the
// attempts run out. Backoff doubles after every attempt.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		if !IsTransient(err) || attempt >= policy.MaxRetries {
			return zero, err
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * policy.Backoff
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(waitTime):
		}
	}
}
