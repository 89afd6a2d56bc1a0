package httputil

import (
	"context"
	"errors"
	"time"
)

// Backend startup retry schedule used by [RetryWithBackoff].
const (
	startupAttempts = 4
	startupDelay    = 250 * time.Millisecond
	maxDelay        = 2 * time.Second
)

// RetryableError marks a failure worth another attempt, such as a refused
// connection while a cache backend is still starting.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. It returns nil for a nil error.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry calls fn until it succeeds, returns an error not marked
// [Retryable], or has been called attempts times. The wait starts at delay
// and doubles up to two seconds. Cancelling ctx aborts the wait with
// ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(delay*2, maxDelay)
	}
	return err
}

// RetryWithBackoff retries fn on the schedule used when connecting to a
// shared cache: four attempts starting 250ms apart.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, startupAttempts, startupDelay, fn)
}

func isRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
