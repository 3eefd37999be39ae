package ratelimit

import (
	"time"

	"github.com/weilintsai/tutorbot-go/internal/metrics"
)

// WebhookRateLimiter wraps the shared Limiter for global webhook throughput.
// LINE delivers webhook events in bursts, so the handler sheds load here
// before any per-user accounting happens.
type WebhookRateLimiter struct {
	*Limiter
}

// NewWebhookRateLimiter creates a new rate limiter
// maxTokens: maximum number of tokens in the bucket
// refillRate: number of tokens to add per second
func NewWebhookRateLimiter(maxTokens, refillRate float64) *WebhookRateLimiter {
	return &WebhookRateLimiter{
		Limiter: New(maxTokens, refillRate),
	}
}

// WaitForToken waits until a token is available
// Returns immediately if a token is available, otherwise blocks
func (rl *WebhookRateLimiter) WaitForToken() {
	rl.WaitSimple()
}

// GetAvailableTokens returns the current number of available tokens
func (rl *WebhookRateLimiter) GetAvailableTokens() float64 {
	return rl.Available()
}

// UserRateLimiter tracks rate limits per user using PerKeyLimiter.
type UserRateLimiter struct {
	pkl *PerKeyLimiter
}

// NewUserRateLimiter creates a new per-user rate limiter.
// maxTokens is the per-user burst and refillRate the sustained rate in
// tokens per second. Remember to call Stop() when done to prevent
// goroutine leaks.
func NewUserRateLimiter(maxTokens, refillRate float64, cleanup time.Duration, m *metrics.Metrics) *UserRateLimiter {
	url := &UserRateLimiter{
		pkl: NewPerKeyLimiter(PerKeyLimiterConfig{
			MaxTokens:     maxTokens,
			RefillRate:    refillRate,
			CleanupPeriod: cleanup,
		}),
	}

	if m != nil {
		url.pkl.OnDrop(func() {
			m.RecordRateLimiterDrop("user")
		})
		url.pkl.OnUpdate(func(count int) {
			m.SetRateLimiterUsers(count)
		})
	}

	return url
}

// Allow checks if a message from a specific user is allowed.
func (url *UserRateLimiter) Allow(userID string) bool {
	return url.pkl.Allow(userID)
}

// GetAvailable returns the remaining tokens for a user.
func (url *UserRateLimiter) GetAvailable(userID string) float64 {
	return url.pkl.GetAvailable(userID)
}

// GetActiveCount returns the current number of active user limiters.
func (url *UserRateLimiter) GetActiveCount() int {
	return url.pkl.GetActiveCount()
}

// Stop gracefully stops the cleanup goroutine.
// Safe to call multiple times.
func (url *UserRateLimiter) Stop() {
	url.pkl.Stop()
}
