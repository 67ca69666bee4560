package portal

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_FirstRequestImmediate(t *testing.T) {
	rl := NewRateLimiter(1.0)
	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Fatalf("first request should be immediate, took %v", elapsed)
	}
}

func TestRateLimiter_SecondRequestDelayed(t *testing.T) {
	rl := NewRateLimiter(10.0) // 100ms interval
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("unexpected error on first wait: %v", err)
	}

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("unexpected error on second wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Fatalf("expected ~100ms delay, got %v", elapsed)
	}
}

func TestRateLimiter_RespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.5) // 2s interval
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(shortCtx); err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
}

func TestRateLimiter_NilLimiterNoOp(t *testing.T) {
	var rl *RateLimiter
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter should not fail: %v", err)
	}
}

func TestNewRateLimiter_ZeroRate(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl.interval != time.Second {
		t.Fatalf("expected 1s interval for zero rate, got %v", rl.interval)
	}

	rl2 := NewRateLimiter(-5)
	if rl2.interval != time.Second {
		t.Fatalf("expected 1s interval for negative rate, got %v", rl2.interval)
	}
}

func TestSleepWithContext(t *testing.T) {
	if err := SleepWithContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep should not fail: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Second); err == nil {
		t.Fatal("expected cancelled context error")
	}
}
