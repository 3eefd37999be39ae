package ratelimit

import (
	"sync"
	"time"
)

// defaultKeyedCleanup bounds how long idle per-user buckets linger when
// the caller leaves CleanupPeriod unset.
const defaultKeyedCleanup = 5 * time.Minute

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Burst is the per-user bucket size; RefillRate is tokens per second.
	Burst      float64
	RefillRate float64

	// DailyLimit caps requests per rolling 24h window (0 = disabled).
	// A rolling window means a user cannot reset their quota at midnight.
	DailyLimit int

	// CleanupPeriod controls how often idle users are evicted.
	// Zero means defaultKeyedCleanup.
	CleanupPeriod time.Duration

	// OnDrop fires when a request is rejected. OnUpdate fires after each
	// cleanup pass with the number of users still tracked. Either may be nil.
	OnDrop   func()
	OnUpdate func(count int)
}

// KeyedLimiter budgets requests per LINE user ID. Each user gets a token
// bucket and, when DailyLimit is set, a rolling 24h counter on top of it.
// Idle users are evicted periodically so the map stays bounded by the
// number of people actually talking to the bot.
type KeyedLimiter struct {
	mu      sync.RWMutex
	budgets map[string]*userBudget
	config  KeyedConfig
	stopCh  chan struct{}
}

// userBudget is one user's limiter state. Its mutex makes the
// check-both-then-consume sequence in Allow atomic, so two concurrent
// messages from the same user cannot both pass on the last token.
type userBudget struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *SlidingWindowCounter
}

// NewKeyedLimiter creates a per-user limiter and starts its eviction
// goroutine. Call Stop when done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = defaultKeyedCleanup
	}

	kl := &KeyedLimiter{
		budgets: make(map[string]*userBudget),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}

	go kl.cleanupLoop()

	return kl
}

// Allow reports whether a request from userID fits the budget, consuming
// one token from every configured layer when it does. Both the bucket and
// the daily window must have room; a request never consumes from one layer
// and bounces off the other.
func (kl *KeyedLimiter) Allow(userID string) bool {
	if userID == "" {
		return true
	}

	budget := kl.getOrCreate(userID)

	budget.mu.Lock()
	defer budget.mu.Unlock()

	if budget.daily != nil && !budget.daily.Check() {
		if kl.config.OnDrop != nil {
			kl.config.OnDrop()
		}
		return false
	}

	if !budget.bucket.Check() {
		if kl.config.OnDrop != nil {
			kl.config.OnDrop()
		}
		return false
	}

	if budget.daily != nil {
		budget.daily.Consume()
	}
	budget.bucket.Consume()

	return true
}

func (kl *KeyedLimiter) getOrCreate(userID string) *userBudget {
	kl.mu.RLock()
	budget, ok := kl.budgets[userID]
	kl.mu.RUnlock()

	if ok {
		return budget
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	if budget, ok = kl.budgets[userID]; ok {
		return budget
	}

	budget = &userBudget{
		bucket: New(kl.config.Burst, kl.config.RefillRate),
		daily:  NewSlidingWindowCounter(kl.config.DailyLimit, 24*time.Hour),
	}
	kl.budgets[userID] = budget
	return budget
}

// GetAvailable returns the user's remaining bucket tokens, or the full
// burst when the user has never been seen.
func (kl *KeyedLimiter) GetAvailable(userID string) float64 {
	kl.mu.RLock()
	budget, ok := kl.budgets[userID]
	kl.mu.RUnlock()

	if !ok {
		return kl.config.Burst
	}

	return budget.bucket.Available()
}

// GetDailyRemaining returns the user's remaining daily quota.
// Returns -1 when the daily layer is disabled.
func (kl *KeyedLimiter) GetDailyRemaining(userID string) int {
	if kl.config.DailyLimit <= 0 {
		return -1
	}

	kl.mu.RLock()
	budget, ok := kl.budgets[userID]
	kl.mu.RUnlock()

	if !ok {
		return kl.config.DailyLimit
	}

	return budget.daily.GetRemaining()
}

// GetActiveCount returns the number of users currently tracked.
func (kl *KeyedLimiter) GetActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.budgets)
}

// cleanupLoop evicts users whose bucket has refilled completely and whose
// daily window shows no usage. Anything else still carries state that a
// fresh budget would forget.
func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.mu.Lock()
			for userID, budget := range kl.budgets {
				if budget.bucket.IsFull() && budget.daily.GetEffectiveCount() == 0 {
					delete(kl.budgets, userID)
				}
			}
			active := len(kl.budgets)
			kl.mu.Unlock()

			if kl.config.OnUpdate != nil {
				kl.config.OnUpdate(active)
			}
		}
	}
}

// Stop terminates the eviction goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	select {
	case <-kl.stopCh:
	default:
		close(kl.stopCh)
	}
}
