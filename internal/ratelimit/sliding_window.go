package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter enforces a rolling-window limit using two fixed
// windows and weighted averaging. It backs the daily LLM call budget,
// where a midnight reset would let one chatty user burn a double quota
// around the boundary.
//
// The effective count is currCount plus prevCount scaled by how much of
// the previous window still overlaps the rolling window. State is O(1)
// per counter regardless of window length.
type SlidingWindowCounter struct {
	mu              sync.Mutex
	currCount       int
	prevCount       int
	currWindowStart time.Time
	windowDuration  time.Duration
	maxRequests     int
}

// NewSlidingWindowCounter creates a counter allowing maxRequests per
// windowDuration. Returns nil if maxRequests <= 0; a nil counter admits
// everything, so callers can treat "no daily limit" uniformly.
func NewSlidingWindowCounter(maxRequests int, windowDuration time.Duration) *SlidingWindowCounter {
	if maxRequests <= 0 {
		return nil
	}
	return &SlidingWindowCounter{
		currWindowStart: time.Now(),
		windowDuration:  windowDuration,
		maxRequests:     maxRequests,
	}
}

// Allow reports whether a request fits in the rolling window, counting
// it if so.
func (swc *SlidingWindowCounter) Allow() bool {
	if swc == nil {
		return true
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	swc.maybeRotateWindow()

	effectiveCount := swc.calculateWeightedCount()
	if effectiveCount >= float64(swc.maxRequests) {
		return false
	}

	swc.currCount++
	return true
}

// Check reports whether a request would fit without counting it.
// Pair with Consume under an external lock for multi-layer checks.
func (swc *SlidingWindowCounter) Check() bool {
	if swc == nil {
		return true
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	swc.maybeRotateWindow()

	effectiveCount := swc.calculateWeightedCount()
	return effectiveCount < float64(swc.maxRequests)
}

// Consume counts a request after a passing Check.
func (swc *SlidingWindowCounter) Consume() {
	if swc == nil {
		return
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	swc.maybeRotateWindow()

	// Recheck under our own lock in case the window rotated
	effectiveCount := swc.calculateWeightedCount()
	if effectiveCount < float64(swc.maxRequests) {
		swc.currCount++
	}
}

// maybeRotateWindow rotates to a new window if the current one expired.
// Caller must hold mu.
func (swc *SlidingWindowCounter) maybeRotateWindow() {
	elapsed := time.Since(swc.currWindowStart)

	if elapsed >= swc.windowDuration {
		windowsPassed := int(elapsed / swc.windowDuration)

		if windowsPassed == 1 {
			swc.prevCount = swc.currCount
		} else {
			// Idle for more than a full window, nothing carries over
			swc.prevCount = 0
		}

		swc.currCount = 0
		swc.currWindowStart = swc.currWindowStart.Add(time.Duration(windowsPassed) * swc.windowDuration)
	}
}

// calculateWeightedCount returns the rolling-window count.
// Caller must hold mu.
func (swc *SlidingWindowCounter) calculateWeightedCount() float64 {
	elapsed := time.Since(swc.currWindowStart)

	overlapRatio := float64(swc.windowDuration-elapsed) / float64(swc.windowDuration)
	if overlapRatio < 0 {
		overlapRatio = 0
	}
	if overlapRatio > 1 {
		overlapRatio = 1
	}

	return float64(swc.currCount) + float64(swc.prevCount)*overlapRatio
}

// GetEffectiveCount returns the current weighted count.
func (swc *SlidingWindowCounter) GetEffectiveCount() float64 {
	if swc == nil {
		return 0
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	swc.maybeRotateWindow()
	return swc.calculateWeightedCount()
}

// GetRemaining returns the approximate remaining quota, or -1 when the
// counter is nil (unlimited).
func (swc *SlidingWindowCounter) GetRemaining() int {
	if swc == nil {
		return -1
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	swc.maybeRotateWindow()
	effectiveCount := swc.calculateWeightedCount()
	remaining := float64(swc.maxRequests) - effectiveCount
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// IsFull reports whether the limit is currently exceeded.
func (swc *SlidingWindowCounter) IsFull() bool {
	if swc == nil {
		return false
	}

	swc.mu.Lock()
	defer swc.mu.Unlock()

	swc.maybeRotateWindow()
	effectiveCount := swc.calculateWeightedCount()
	return effectiveCount >= float64(swc.maxRequests)
}
