// Cross-provider failover for the NLU parser chain.
package aicap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/metrics"
)

// FallbackParser walks an ordered chain of parsers. It implements
// three-layer fallback:
// 1. Model retry with backoff (same provider)
// 2. Provider fallback (next parser in the chain)
// 3. Graceful degradation (a local parser at the end of the chain)
type FallbackParser struct {
	chain       []Parser
	retryConfig RetryConfig
}

// NewFallbackParser creates a fallback-enabled parser over the given chain.
// Nil entries are skipped. The chain order is the failover order.
func NewFallbackParser(cfg RetryConfig, parsers ...Parser) *FallbackParser {
	chain := make([]Parser, 0, len(parsers))
	for _, p := range parsers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackParser{chain: chain, retryConfig: cfg}
}

// Parse tries each parser in order with retry, advancing on recoverable
// failures. A permanent error stops the chain.
func (f *FallbackParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if f == nil || len(f.chain) == 0 {
		return nil, errors.New("intent parser not configured")
	}

	start := time.Now()
	var lastErr error

	for i, parser := range f.chain {
		provider := parser.Provider()
		attemptStart := time.Now()

		var result *ParseResult
		err := withRetry(ctx, f.retryConfig, func(attempt int, err error) {
			slog.DebugContext(ctx, "retrying intent parse",
				"provider", provider,
				"attempt", attempt,
				"error", err)
		}, func() error {
			var perr error
			result, perr = parser.Parse(ctx, text)
			return perr
		})
		if err == nil {
			recordParseSuccess(provider, attemptStart)
			if i > 0 {
				recordFallback(f.chain[0].Provider(), provider, "parse", time.Since(start))
			}
			return result, nil
		}

		lastErr = err
		action := ClassifyError(err)
		recordParseError(provider, err)

		if action == ActionFail || i == len(f.chain)-1 {
			break
		}

		slog.WarnContext(ctx, "intent parser failed, falling back",
			"from", provider,
			"to", f.chain[i+1].Provider(),
			"error", err,
			"action", action,
			"duration", time.Since(start))
	}

	slog.ErrorContext(ctx, "all intent parsers failed",
		"providers", len(f.chain),
		"error", lastErr)
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// FillSlots tries each parser in order with the same failover policy as
// Parse. On complete failure the caller keeps its rule-extracted slots,
// so an error here is never fatal to the request.
func (f *FallbackParser) FillSlots(ctx context.Context, text, intent string, existing map[string]string) (map[string]string, error) {
	if f == nil || len(f.chain) == 0 {
		return nil, errors.New("slot filler not configured")
	}

	var lastErr error
	for i, parser := range f.chain {
		var slots map[string]string
		err := withRetry(ctx, f.retryConfig, nil, func() error {
			var perr error
			slots, perr = parser.FillSlots(ctx, text, intent, existing)
			return perr
		})
		if err == nil {
			return slots, nil
		}

		lastErr = err
		if ClassifyError(err) == ActionFail || i == len(f.chain)-1 {
			break
		}

		slog.WarnContext(ctx, "slot filler failed, falling back",
			"from", parser.Provider(),
			"to", f.chain[i+1].Provider(),
			"error", err)
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// Provider returns the first provider in the chain.
func (f *FallbackParser) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Close closes every parser in the chain.
func (f *FallbackParser) Close() error {
	if f == nil {
		return nil
	}

	var errs []error
	for _, parser := range f.chain {
		if err := parser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Helper functions for metrics recording

func recordParseSuccess(provider Provider, start time.Time) {
	if metrics.LLMTotal == nil || metrics.LLMDuration == nil {
		return
	}
	metrics.LLMTotal.WithLabelValues(string(provider), "parse", "success").Inc()
	metrics.LLMDuration.WithLabelValues(string(provider), "parse").Observe(time.Since(start).Seconds())
}

func recordParseError(provider Provider, err error) {
	if metrics.LLMTotal == nil {
		return
	}
	metrics.LLMTotal.WithLabelValues(string(provider), "parse", classifyErrorType(err)).Inc()
}

func recordFallback(fromProvider, toProvider Provider, operation string, totalDuration time.Duration) {
	if metrics.LLMFallbackTotal == nil {
		return
	}
	metrics.LLMFallbackTotal.WithLabelValues(
		string(fromProvider),
		string(toProvider),
		operation,
	).Inc()

	if metrics.LLMFallbackLatency != nil {
		metrics.LLMFallbackLatency.WithLabelValues(
			string(fromProvider),
			string(toProvider),
			operation,
		).Observe(totalDuration.Seconds())
	}
}

// classifyErrorType maps an error to a metric status label.
func classifyErrorType(err error) string {
	if err == nil {
		return "success"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch {
		case llmErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case llmErr.StatusCode >= 500:
			return "server_error"
		case llmErr.StatusCode == http.StatusUnauthorized || llmErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case llmErr.StatusCode == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}
