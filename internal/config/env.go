// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core (Required)
	EnvLineChannelAccessToken = "TUTOR_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "TUTOR_LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "TUTOR_PORT"
	EnvLogLevel        = "TUTOR_LOG_LEVEL"
	EnvShutdownTimeout = "TUTOR_SHUTDOWN_TIMEOUT"
	EnvServerName      = "TUTOR_SERVER_NAME"
	EnvInstanceID      = "TUTOR_INSTANCE_ID"

	// Data
	EnvDataDir         = "TUTOR_DATA_DIR"
	EnvPersistContexts = "TUTOR_PERSIST_CONTEXTS"

	// NLU
	EnvNLUAIFallback      = "TUTOR_NLU_AI_FALLBACK"
	EnvNLUAIMinConfidence = "TUTOR_NLU_AI_MIN_CONFIDENCE"
	EnvNLUAIAssistBelow   = "TUTOR_NLU_AI_ASSIST_BELOW"
	EnvNLUReviewBelow     = "TUTOR_NLU_REVIEW_BELOW"
	EnvNLUDailyRecurrence = "TUTOR_NLU_DAILY_RECURRENCE"
	EnvNLUDefaultPeriod   = "TUTOR_NLU_DEFAULT_PERIOD"

	// Conversation
	EnvContextTTL = "TUTOR_CONTEXT_TTL"
	EnvPendingTTL = "TUTOR_PENDING_TTL"

	// Rate Limits
	EnvGlobalRateRPS  = "TUTOR_GLOBAL_RATE_RPS"
	EnvUserRateBurst  = "TUTOR_USER_RATE_BURST"
	EnvUserRateRefill = "TUTOR_USER_RATE_REFILL"
	EnvLLMRateBurst   = "TUTOR_LLM_RATE_BURST"
	EnvLLMRateRefill  = "TUTOR_LLM_RATE_REFILL"
	EnvLLMRateDaily   = "TUTOR_LLM_RATE_DAILY"

	// LLM Feature
	EnvLLMEnabled       = "TUTOR_LLM_ENABLED"
	EnvLLMProviders     = "TUTOR_LLM_PROVIDERS"
	EnvLLMLocalFallback = "TUTOR_LLM_LOCAL_FALLBACK"
	EnvGeminiAPIKey     = "TUTOR_GEMINI_API_KEY"
	EnvGroqAPIKey       = "TUTOR_GROQ_API_KEY"
	EnvCerebrasAPIKey   = "TUTOR_CEREBRAS_API_KEY"
	EnvGeminiModels     = "TUTOR_GEMINI_MODELS"
	EnvGroqModels       = "TUTOR_GROQ_MODELS"
	EnvCerebrasModels   = "TUTOR_CEREBRAS_MODELS"

	// Review Feature
	EnvReviewQueueSize    = "TUTOR_REVIEW_QUEUE_SIZE"
	EnvReviewShipInterval = "TUTOR_REVIEW_SHIP_INTERVAL"
	EnvReviewShipPrefix   = "TUTOR_REVIEW_SHIP_PREFIX"

	// R2 Feature
	EnvR2Enabled         = "TUTOR_R2_ENABLED"
	EnvR2AccountID       = "TUTOR_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "TUTOR_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "TUTOR_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "TUTOR_R2_BUCKET_NAME"

	// Sentry Feature
	EnvSentryEnabled          = "TUTOR_SENTRY_ENABLED"
	EnvSentryDSN              = "TUTOR_SENTRY_DSN"
	EnvSentryEnvironment      = "TUTOR_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "TUTOR_SENTRY_RELEASE"
	EnvSentrySampleRate       = "TUTOR_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "TUTOR_SENTRY_TRACES_SAMPLE_RATE"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "TUTOR_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "TUTOR_METRICS_USERNAME"
	EnvMetricsPassword    = "TUTOR_METRICS_PASSWORD"
)
