package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestNewSlidingWindowCounter(t *testing.T) {
	t.Parallel()
	if NewSlidingWindowCounter(0, time.Hour) != nil {
		t.Error("expected nil counter for zero limit")
	}
	if NewSlidingWindowCounter(10, time.Hour) == nil {
		t.Error("expected non-nil counter")
	}
}

func TestSlidingWindowCounter_NilAdmitsAll(t *testing.T) {
	t.Parallel()
	var swc *SlidingWindowCounter

	if !swc.Allow() {
		t.Error("nil counter should admit everything")
	}
	if !swc.Check() {
		t.Error("nil counter Check() should pass")
	}
	if swc.GetRemaining() != -1 {
		t.Errorf("nil counter GetRemaining() = %d, want -1", swc.GetRemaining())
	}
	if swc.IsFull() {
		t.Error("nil counter should never be full")
	}
}

func TestSlidingWindowCounter_Allow(t *testing.T) {
	t.Parallel()
	swc := NewSlidingWindowCounter(5, time.Second)

	for i := 0; i < 5; i++ {
		if !swc.Allow() {
			t.Errorf("Allow() = false at call %d, want true", i+1)
		}
	}
	if swc.Allow() {
		t.Error("Allow() = true past the limit, want false")
	}
}

func TestSlidingWindowCounter_WindowRotation(t *testing.T) {
	t.Parallel()
	window := 50 * time.Millisecond
	swc := NewSlidingWindowCounter(10, window)

	for i := 0; i < 10; i++ {
		swc.Allow()
	}
	if swc.Allow() {
		t.Error("expected limit while window full")
	}

	time.Sleep(window + 20*time.Millisecond)

	// The previous window's weight decays as the new one progresses,
	// so at least one call fits again
	if !swc.Allow() {
		t.Error("expected admission after window rotation")
	}
}

func TestSlidingWindowCounter_WeightedCount(t *testing.T) {
	t.Parallel()
	// Window 100ms, limit 10: fill at T=0, sleep 150ms.
	// One window rotated, 50ms into the next, so overlap is 0.5 and
	// effective count = 0 + 10*0.5 = 5, leaving ~5 remaining.
	window := 100 * time.Millisecond
	swc := NewSlidingWindowCounter(10, window)

	for i := 0; i < 10; i++ {
		swc.Allow()
	}

	time.Sleep(150 * time.Millisecond)

	remaining := swc.GetRemaining()
	if remaining < 4 || remaining > 6 {
		t.Errorf("GetRemaining() = %d, want ~5", remaining)
	}

	effective := swc.GetEffectiveCount()
	if effective < 4.0 || effective > 6.0 {
		t.Errorf("GetEffectiveCount() = %f, want ~5.0", effective)
	}
}

func TestSlidingWindowCounter_CheckConsume(t *testing.T) {
	t.Parallel()
	swc := NewSlidingWindowCounter(1, time.Minute)

	if !swc.Check() {
		t.Error("Check() = false for empty counter, want true")
	}

	swc.Consume()

	if swc.Check() {
		t.Error("Check() = true after the quota is spent, want false")
	}
	if !swc.IsFull() {
		t.Error("IsFull() = false at the limit, want true")
	}
}

func TestSlidingWindowCounter_Concurrency(t *testing.T) {
	t.Parallel()
	limit := 100
	swc := NewSlidingWindowCounter(limit, time.Hour)

	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex

	for i := 0; i < 200; i++ {
		wg.Go(func() {
			if swc.Allow() {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		})
	}

	wg.Wait()

	if successCount != limit {
		t.Errorf("admitted %d concurrent calls, want %d", successCount, limit)
	}
}

func TestSlidingWindowCounter_MultiWindowGap(t *testing.T) {
	t.Parallel()
	// A gap longer than one full window drops all carried-over weight
	window := 20 * time.Millisecond
	swc := NewSlidingWindowCounter(10, window)

	swc.Allow()

	time.Sleep(65 * time.Millisecond)

	if swc.GetEffectiveCount() != 0 {
		t.Errorf("GetEffectiveCount() after long gap = %f, want 0", swc.GetEffectiveCount())
	}
}
