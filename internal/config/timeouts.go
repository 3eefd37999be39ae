// Package config provides centralized timeout constants for the application.
//
// These values are tuned for the LINE Messaging API (reply tokens, webhook
// acknowledgment) and the latency of the LLM providers behind the NLU
// fallback.
package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing is the timeout for processing a single webhook
	// event. A turn is rule-based classification plus at most one AI
	// fallback call plus one task execution, so this comfortably covers the
	// worst case while staying within LINE's loading-animation window.
	WebhookProcessing = 25 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	// Should be short since LINE sends small JSON payloads.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// Should accommodate WebhookProcessing + response serialization.
	WebhookHTTPWrite = 30 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Dialogue state windows
const (
	// PendingInputTTL is how long a pending task keeps absorbing
	// supplements before it silently expires.
	PendingInputTTL = 2 * time.Minute

	// ContextTTL is how long a user's whole dialogue context survives
	// without activity.
	ContextTTL = 30 * time.Minute

	// ContextCleanupInterval is how often expired contexts are evicted
	// from the in-memory store.
	ContextCleanupInterval = 5 * time.Minute
)

// AI capability timeouts
const (
	// AICall bounds one LLM provider call, including the model's function
	// calling round trip. Retries and provider fallback each get their own
	// window, all inside the webhook deadline.
	AICall = 10 * time.Second
)

// Task execution timeouts
const (
	// TaskExecution bounds one backend task execution. On expiry the task
	// rolls back into a retryable pending state with slots preserved.
	TaskExecution = 15 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals
const (
	// ReviewShipInterval is how often unshipped review entries are
	// exported to object storage.
	ReviewShipInterval = 10 * time.Minute

	// ContextPurgeInterval is how often expired persisted contexts are
	// deleted from SQLite.
	ContextPurgeInterval = 12 * time.Hour

	// MetricsUpdateInterval is how often gauge metrics (active contexts)
	// are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive user rate limiters are cleaned.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
