package notifier

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows burst immediately", func(t *testing.T) {
		limiter := NewRateLimiter(2.0, 5)
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Allow(ctx); err != nil {
				t.Fatalf("request %d: unexpected error %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("burst requests took %v, expected near-immediate", elapsed)
		}
	})

	t.Run("blocks once tokens are exhausted", func(t *testing.T) {
		limiter := NewRateLimiter(1.0, 1)
		if err := limiter.Allow(context.Background()); err != nil {
			t.Fatalf("first request should succeed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := limiter.Allow(ctx); err == nil {
			t.Error("expected second request to be rejected before the deadline")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 1)
		_ = limiter.Allow(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Allow(ctx); err == nil {
			t.Fatal("expected error for canceled context")
		}
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		for i := 0; i < 100; i++ {
			if err := limiter.Allow(ctx); err != nil {
				t.Fatalf("request %d: unexpected error %v", i, err)
			}
		}
	})
}
