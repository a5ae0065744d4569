package utils

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------

// Retry invokes fn and, on failure, waits delay and tries again, up to
// maxRetries additional attempts (maxRetries=3 means up to 4 invocations).
// The last error is propagated unchanged. The wait between attempts is
// interruptible by the context.
func Retry[T any](ctx context.Context, maxRetries int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------

// RetryFunc is the error-only variant of Retry.
func RetryFunc(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	_, err := Retry(ctx, maxRetries, delay, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
