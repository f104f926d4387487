package drive

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Drive allows roughly 10 requests/second/user; stay below it.
const (
	DefaultRequestsPerSecond = 8.0
	DefaultBurst             = 10
	defaultBackoff           = 60 * time.Second
)

// RateLimiter is a token bucket that also honours a backoff window after a 429.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		backoff: defaultBackoff,
	}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Backoff pauses all callers for d (or the default window when d <= 0).
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = r.backoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(d)
}
