package portal

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces outgoing portal requests so that no more than the
// configured rate reaches the backend.
//
// Each call to Wait blocks until the next slot is available, or the context
// expires.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // minimum time between requests
	last     time.Time     // timestamp of last granted slot
}

// NewRateLimiter creates a rate limiter that allows maxPerSecond requests per second.
// For sub-second rates, pass a fractional value (e.g. 0.1 for 6 req/min).
func NewRateLimiter(maxPerSecond float64) *RateLimiter {
	if maxPerSecond <= 0 {
		maxPerSecond = 1
	}
	return &RateLimiter{
		interval: time.Duration(float64(time.Second) / maxPerSecond),
	}
}

// Wait blocks until a request slot is available or the context is cancelled.
// A nil limiter never blocks.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}

	rl.mu.Lock()
	now := time.Now()

	if rl.last.IsZero() || now.Sub(rl.last) >= rl.interval {
		rl.last = now
		rl.mu.Unlock()
		return nil
	}

	waitUntil := rl.last.Add(rl.interval)
	rl.last = waitUntil
	rl.mu.Unlock()

	delay := time.Until(waitUntil)
	if delay <= 0 {
		return nil
	}

	return SleepWithContext(ctx, delay)
}

// SleepWithContext sleeps for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
