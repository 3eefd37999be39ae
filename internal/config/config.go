// Package config provides application configuration management.
// It loads settings from environment variables (with optional .env file)
// and applies defaults for the server, NLU thresholds, dialogue-state TTLs
// and the optional LLM, R2 and Sentry features.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/weilintsai/tutorbot-go/internal/aicap"
)

// Config holds all application configuration.
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	ServerName      string
	InstanceID      string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir         string
	PersistContexts bool // write dialogue contexts through to SQLite

	NLU          NLUConfig
	Conversation ConversationConfig
	Rate         RateConfig
	LLM          aicap.LLMConfig
	Review       ReviewConfig
	R2           R2Config
	Sentry       SentryConfig
	MetricsAuth  MetricsAuthConfig
}

// NLUConfig tunes classification and extraction thresholds.
type NLUConfig struct {
	// AIFallback enables the LLM chain when rule scoring yields nothing.
	AIFallback bool
	// AIMinConfidence is the acceptance threshold for AI classifications.
	AIMinConfidence float64
	// AIAssistBelow triggers AI slot completion under this rule confidence.
	AIAssistBelow float64
	// ReviewBelow queues the turn for offline review under this final
	// confidence.
	ReviewBelow float64
	// DailyRecurrence enables recognition of 每天 recurrence.
	DailyRecurrence bool
	// DefaultPeriod resolves bare 12-hour numerals ("6點"); typically 下午.
	DefaultPeriod string
}

// ConversationConfig tunes the dialogue-state TTL layers.
type ConversationConfig struct {
	ContextTTL time.Duration
	PendingTTL time.Duration
}

// RateConfig holds request and LLM budget limits.
type RateConfig struct {
	GlobalRPS        float64 // global webhook requests per second
	UserBurst        float64 // token-bucket burst per user
	UserRefillPerSec float64 // tokens refilled per second per user
	LLMBurst         float64 // burst tokens for LLM calls
	LLMRefillPerHour float64 // LLM tokens refilled per hour
	LLMDailyLimit    int     // max LLM calls per day (0 = disabled)
}

// ReviewConfig tunes the low-confidence review channel.
type ReviewConfig struct {
	QueueSize    int
	ShipInterval time.Duration
	ShipPrefix   string
}

// R2Config holds R2-compatible object storage settings for review shipping.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// Endpoint returns the R2 endpoint URL for the configured account.
func (c R2Config) Endpoint() string {
	if c.AccountID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// SentryConfig holds error-tracking settings.
type SentryConfig struct {
	Enabled          bool
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
}

// MetricsAuthConfig guards the /metrics endpoint with Basic Auth.
type MetricsAuthConfig struct {
	Enabled  bool
	Username string
	Password string
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first, then reads from env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ServerName:      getEnv(EnvServerName, "tutorbot"),
		InstanceID:      getEnv(EnvInstanceID, ""),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir:         getEnv(EnvDataDir, getDefaultDataDir()),
		PersistContexts: getBoolEnv(EnvPersistContexts, false),

		NLU: NLUConfig{
			AIFallback:      getBoolEnv(EnvNLUAIFallback, true),
			AIMinConfidence: getFloatEnv(EnvNLUAIMinConfidence, 0.7),
			AIAssistBelow:   getFloatEnv(EnvNLUAIAssistBelow, 0.6),
			ReviewBelow:     getFloatEnv(EnvNLUReviewBelow, 0.5),
			DailyRecurrence: getBoolEnv(EnvNLUDailyRecurrence, true),
			DefaultPeriod:   getEnv(EnvNLUDefaultPeriod, "下午"),
		},

		Conversation: ConversationConfig{
			ContextTTL: getDurationEnv(EnvContextTTL, ContextTTL),
			PendingTTL: getDurationEnv(EnvPendingTTL, PendingInputTTL),
		},

		Rate: RateConfig{
			GlobalRPS:        getFloatEnv(EnvGlobalRateRPS, 80.0),
			UserBurst:        getFloatEnv(EnvUserRateBurst, 6.0),
			UserRefillPerSec: getFloatEnv(EnvUserRateRefill, 0.2),
			LLMBurst:         getFloatEnv(EnvLLMRateBurst, 40.0),
			LLMRefillPerHour: getFloatEnv(EnvLLMRateRefill, 20.0),
			LLMDailyLimit:    getIntEnv(EnvLLMRateDaily, 100),
		},

		Review: ReviewConfig{
			QueueSize:    getIntEnv(EnvReviewQueueSize, 256),
			ShipInterval: getDurationEnv(EnvReviewShipInterval, ReviewShipInterval),
			ShipPrefix:   getEnv(EnvReviewShipPrefix, "reviews"),
		},

		R2: R2Config{
			Enabled:         getBoolEnv(EnvR2Enabled, false),
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
		},

		Sentry: SentryConfig{
			Enabled:          getBoolEnv(EnvSentryEnabled, false),
			DSN:              getEnv(EnvSentryDSN, ""),
			Environment:      getEnv(EnvSentryEnvironment, "production"),
			Release:          getEnv(EnvSentryRelease, ""),
			SampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
			TracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.1),
		},

		MetricsAuth: MetricsAuthConfig{
			Enabled:  getBoolEnv(EnvMetricsAuthEnabled, false),
			Username: getEnv(EnvMetricsUsername, "prometheus"),
			Password: getEnv(EnvMetricsPassword, ""),
		},
	}

	cfg.LLM = loadLLMConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadLLMConfig assembles the provider chain configuration.
func loadLLMConfig() aicap.LLMConfig {
	llm := aicap.LLMConfig{
		Gemini: aicap.ProviderConfig{
			APIKey: getEnv(EnvGeminiAPIKey, ""),
			Models: getSliceEnv(EnvGeminiModels, aicap.DefaultGeminiModels),
		},
		Groq: aicap.ProviderConfig{
			APIKey: getEnv(EnvGroqAPIKey, ""),
			Models: getSliceEnv(EnvGroqModels, aicap.DefaultGroqModels),
		},
		Cerebras: aicap.ProviderConfig{
			APIKey: getEnv(EnvCerebrasAPIKey, ""),
			Models: getSliceEnv(EnvCerebrasModels, aicap.DefaultCerebrasModels),
		},
		LocalFallback: getBoolEnv(EnvLLMLocalFallback, true),
		Retry: aicap.RetryConfig{
			MaxAttempts:  aicap.DefaultMaxRetryAttempts,
			InitialDelay: aicap.DefaultInitialRetryDelay,
			MaxDelay:     aicap.DefaultMaxRetryDelay,
		},
	}

	if !getBoolEnv(EnvLLMEnabled, true) {
		return aicap.LLMConfig{LocalFallback: llm.LocalFallback}
	}

	for _, name := range getSliceEnv(EnvLLMProviders, nil) {
		llm.Providers = append(llm.Providers, aicap.Provider(strings.ToLower(name)))
	}

	return llm
}

// Validate checks if required configuration values are set.
func (c *Config) Validate() error {
	var errs []error

	if c.LineChannelToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelAccessToken))
	}
	if c.LineChannelSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvLineChannelSecret))
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.NLU.AIMinConfidence < 0 || c.NLU.AIMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("AI min confidence must be in [0,1], got %v", c.NLU.AIMinConfidence))
	}
	if c.NLU.AIAssistBelow < 0 || c.NLU.AIAssistBelow > 1 {
		errs = append(errs, fmt.Errorf("AI assist threshold must be in [0,1], got %v", c.NLU.AIAssistBelow))
	}
	if c.Conversation.ContextTTL <= 0 {
		errs = append(errs, fmt.Errorf("context TTL must be positive, got %v", c.Conversation.ContextTTL))
	}
	if c.Conversation.PendingTTL <= 0 {
		errs = append(errs, fmt.Errorf("pending TTL must be positive, got %v", c.Conversation.PendingTTL))
	}
	if c.Conversation.PendingTTL > c.Conversation.ContextTTL {
		errs = append(errs, fmt.Errorf("pending TTL %v must not exceed context TTL %v", c.Conversation.PendingTTL, c.Conversation.ContextTTL))
	}
	if c.Rate.GlobalRPS <= 0 {
		errs = append(errs, fmt.Errorf("global rate limit RPS must be positive, got %v", c.Rate.GlobalRPS))
	}
	if c.Rate.UserBurst <= 0 || c.Rate.UserRefillPerSec <= 0 {
		errs = append(errs, errors.New("user rate limit burst and refill must be positive"))
	}
	if c.R2.Enabled {
		if c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" || c.R2.BucketName == "" {
			errs = append(errs, errors.New("R2 is enabled but not fully configured"))
		}
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		errs = append(errs, fmt.Errorf("%s is required when Sentry is enabled", EnvSentryDSN))
	}
	if c.MetricsAuth.Enabled && c.MetricsAuth.Password == "" {
		errs = append(errs, fmt.Errorf("%s is required when metrics auth is enabled", EnvMetricsPassword))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SQLitePath returns the full path to the SQLite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "tutorbot.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getSliceEnv retrieves a comma-separated environment variable.
func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
