// Package aicap provides the AI capability behind intent classification and
// slot extraction: Gemini via the official SDK, Groq and Cerebras via the
// OpenAI-compatible API, with model retry, provider fallback and a local
// segmentation-based last resort.
//
// Fallback strategy (3-layer):
//  1. Model retry: the same model retried with full-jitter backoff
//  2. Provider chain: next provider in LLM_PROVIDERS order
//  3. Local degradation: dictionary segmentation scoring, never errors
package aicap

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini is Google's Gemini API (non-OpenAI-compatible SDK).
	ProviderGemini Provider = "gemini"
	// ProviderGroq is Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
	// ProviderCerebras is Cerebras's API (OpenAI-compatible).
	ProviderCerebras Provider = "cerebras"
	// ProviderLocal is the in-process segmentation fallback.
	ProviderLocal Provider = "local"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible reports whether the provider speaks the OpenAI API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string { return string(p) }

// Parser is the provider-side contract for the two NLU capabilities.
// Both calls use forced function calling so responses stay structured.
type Parser interface {
	// Parse classifies the utterance into a tutoring intent with slots and
	// a model-reported confidence.
	Parse(ctx context.Context, text string) (*ParseResult, error)
	// FillSlots extracts slot values for a known intent. existing values
	// are passed for context; the caller owns the merge policy.
	FillSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any resources held by the parser.
	Close() error
}

// ParseResult is one classification outcome.
type ParseResult struct {
	// Intent is the tutoring intent name (add_course, query_schedule, ...).
	Intent string
	// Slots holds the parameter values the model extracted alongside the
	// intent. Keys follow the slot naming of the dialogue layer.
	Slots map[string]string
	// Confidence is the model's self-reported certainty in [0,1].
	Confidence float64
	// FunctionName is the raw function name from the model (for debugging).
	FunctionName string
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	// APIKey is the API key for the provider.
	APIKey string
	// Models is the ordered model chain; first is primary.
	Models []string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	// Providers is the ordered list of providers to try.
	Providers []Provider
	Gemini    ProviderConfig
	Groq      ProviderConfig
	Cerebras  ProviderConfig
	// LocalFallback appends the segmentation parser to the chain.
	LocalFallback bool
	Retry         RetryConfig
}

// Default model chains. First element is primary, the rest are fallbacks.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash-lite", "gemini-2.5-flash"}
	DefaultGroqModels     = []string{"meta-llama/llama-4-maverick-17b-128e-instruct", "llama-3.3-70b-versatile"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	// DefaultProviders is the default fallback order.
	DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}
)

// Retry configuration defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second

	// parseTimeout bounds one provider call; the webhook deadline still
	// applies through the parent context.
	parseTimeout = 10 * time.Second
)

// HasAnyProvider reports whether at least one remote provider has a key.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != "" || c.Cerebras.APIKey != ""
}

// HasProvider reports whether the given provider is configured.
func (c *LLMConfig) HasProvider(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderGroq:
		return c.Groq.APIKey != ""
	case ProviderCerebras:
		return c.Cerebras.APIKey != ""
	case ProviderLocal:
		return c.LocalFallback
	default:
		return false
	}
}

// ConfiguredProviders returns the providers with keys, in chain order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	order := c.Providers
	if len(order) == 0 {
		order = DefaultProviders
	}
	result := make([]Provider, 0, len(order))
	for _, p := range order {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
