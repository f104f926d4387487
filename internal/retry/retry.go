// Package retry runs an operation with linear backoff, honouring cancellation.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")

// DelayFunc returns how long to wait after the given failed attempt (1-based).
type DelayFunc func(attempt int) time.Duration

// Linear waits base*attempt: 1x after the first failure, 2x after the second.
func Linear(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op up to maxAttempts times, sleeping delay(attempt) between
// failures. It returns the number of attempts made and the last error.
// Sleeps are interrupted by ctx; a Permanent error stops immediately.
func Do(ctx context.Context, maxAttempts int, delay DelayFunc, op func(ctx context.Context, attempt int) error) (int, error) {
	if maxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			if attempt > 1 {
				slog.DebugContext(ctx, "operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return attempt, perm.err
		}

		slog.WarnContext(ctx, "operation failed, will retry", "attempt", attempt, "max_attempts", maxAttempts, "error", lastErr)
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return maxAttempts, lastErr
}
