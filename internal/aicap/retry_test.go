package aicap

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	initial := 100 * time.Millisecond
	max := 2 * time.Second

	for attempt := 1; attempt <= 6; attempt++ {
		for range 20 {
			got := CalculateBackoff(attempt, initial, max)
			if got < 0 {
				t.Errorf("attempt %d: backoff %v is negative", attempt, got)
			}
			ceiling := initial * time.Duration(1<<(attempt-1))
			if ceiling > max {
				ceiling = max
			}
			if got >= ceiling && ceiling > 0 {
				t.Errorf("attempt %d: backoff %v exceeds ceiling %v", attempt, got, ceiling)
			}
		}
	}
}

func TestCalculateBackoff_ZeroAttempt(t *testing.T) {
	t.Parallel()
	if got := CalculateBackoff(0, time.Second, time.Minute); got != 0 {
		t.Errorf("CalculateBackoff(0) = %v, want 0", got)
	}
	if got := CalculateBackoff(-1, time.Second, time.Minute); got != 0 {
		t.Errorf("CalculateBackoff(-1) = %v, want 0", got)
	}
}

func TestHasSufficientBudget(t *testing.T) {
	t.Parallel()

	if !HasSufficientBudget(context.Background(), time.Hour) {
		t.Error("no deadline should mean unlimited budget")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if HasSufficientBudget(ctx, time.Second) {
		t.Error("50ms remaining should not cover 1s")
	}
	if !HasSufficientBudget(ctx, time.Millisecond) {
		t.Error("50ms remaining should cover 1ms")
	}
}

func TestSleep_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep on canceled context = %v, want context.Canceled", err)
	}
	if err := Sleep(ctx, 0); err != nil {
		t.Errorf("Sleep(0) = %v, want nil", err)
	}
}

func TestWithRetry_EventualSuccess(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), cfg, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("service unavailable")
		}
		return nil
	})
	if err != nil {
		t.Errorf("withRetry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_PermanentErrorAborts(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	permanent := errors.New("400 bad request")
	err := withRetry(context.Background(), cfg, nil, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("withRetry() = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent error)", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	retries := 0
	transient := errors.New("connection refused")
	err := withRetry(context.Background(), cfg, func(_ int, _ error) { retries++ }, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Errorf("withRetry() = %v, want %v", err, transient)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if retries != 1 {
		t.Errorf("onRetry calls = %d, want 1", retries)
	}
}

func TestWithRetry_QuotaErrorAborts(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := withRetry(context.Background(), cfg, nil, func() error {
		calls++
		return errors.New("monthly limit exceeded")
	})
	if err == nil {
		t.Fatal("withRetry() = nil, want quota error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (fallback-worthy error should not retry)", calls)
	}
	if ClassifyError(err) != ActionFallback {
		t.Errorf("returned error should classify as fallback, got %v", ClassifyError(err))
	}
}
