package notifier

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting for outbound notifications.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained and burst at once.
// A non-positive requestsPerSecond disables limiting.
//
// Example:
//
//	limiter := NewRateLimiter(20, 10)  // 20 req/s with burst of 10
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Allow blocks until a token is available or the context is canceled.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
