// Package ratelimit provides rate limiting mechanisms using token bucket algorithm.
package ratelimit

import (
	"time"

	"github.com/weilintsai/tutorbot-go/internal/metrics"
)

// LLMConfig configures the per-user limiter for AI-backed parsing calls.
type LLMConfig struct {
	// Burst is the maximum number of AI calls a user can make back to back.
	Burst float64

	// MaxPerHour controls the sustained hourly refill rate.
	MaxPerHour float64

	// DailyLimit caps AI calls per rolling 24h window (0 = disabled).
	DailyLimit int

	// CleanupPeriod controls how often inactive user limiters are removed.
	CleanupPeriod time.Duration

	// Metrics is an optional reporter for drops and active-user counts.
	Metrics *metrics.Metrics
}

// LLMRateLimiter tracks per-user AI usage with hourly and daily limits.
// This is separate from the general user rate limiter because AI-backed
// intent parsing is far more expensive than regular message processing.
// When a user exhausts their budget the caller falls back to rule-based
// parsing rather than rejecting the message.
type LLMRateLimiter struct {
	kl     *KeyedLimiter
	config LLMConfig
}

// NewLLMRateLimiter creates a per-user AI call limiter.
//
// The hourly layer is a token bucket with maxTokens = Burst and
// refillRate = MaxPerHour / 3600 tokens per second. The daily layer is a
// sliding 24h window so a user cannot reset their quota at midnight.
// Both layers must pass for a call to be allowed.
func NewLLMRateLimiter(cfg LLMConfig) *LLMRateLimiter {
	kc := KeyedConfig{
		Burst:         cfg.Burst,
		RefillRate:    cfg.MaxPerHour / 3600.0,
		DailyLimit:    cfg.DailyLimit,
		CleanupPeriod: cfg.CleanupPeriod,
	}
	if cfg.Metrics != nil {
		kc.OnDrop = func() {
			cfg.Metrics.RecordRateLimiterDrop("llm")
		}
		kc.OnUpdate = func(count int) {
			cfg.Metrics.SetLLMRateLimiterUsers(count)
		}
	}
	return &LLMRateLimiter{
		kl:     NewKeyedLimiter(kc),
		config: cfg,
	}
}

// Allow checks if an AI call from userID is allowed under both limits.
// Returns true if allowed (tokens consumed), false if either limit is exceeded.
func (llm *LLMRateLimiter) Allow(userID string) bool {
	return llm.kl.Allow(userID)
}

// GetAvailable returns the remaining hourly tokens for a user.
// Returns Burst if the user has no limiter yet (first-time user).
func (llm *LLMRateLimiter) GetAvailable(userID string) float64 {
	return llm.kl.GetAvailable(userID)
}

// GetDailyRemaining returns the remaining daily quota for a user.
// Returns -1 if the daily limit is disabled.
func (llm *LLMRateLimiter) GetDailyRemaining(userID string) int {
	return llm.kl.GetDailyRemaining(userID)
}

// GetActiveCount returns the current number of active user limiters.
func (llm *LLMRateLimiter) GetActiveCount() int {
	return llm.kl.GetActiveCount()
}

// Stop gracefully stops the cleanup goroutine.
// Safe to call multiple times.
func (llm *LLMRateLimiter) Stop() {
	llm.kl.Stop()
}
