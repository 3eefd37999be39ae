// Error classification driving retry and provider-fallback decisions.
package aicap

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction is the decision taken for a failed LLM call.
type ErrorAction int

const (
	// ActionRetry retries with the same provider/model.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next provider in the chain.
	ActionFallback
	// ActionFail fails immediately (permanent error).
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError carries provider and status context for classification.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error { return e.Err }

// ClassifyError maps an error to the retry/fallback/fail decision:
//   - transient errors (429, 5xx, network, timeout) → retry
//   - quota exhaustion → fallback to the next provider
//   - permanent errors (400, 401, 403, 404, 422) → fail
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion is more severe than rate limiting: switch provider.
	if matchesAny(errStr, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}
	if matchesAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429") {
		return ActionRetry
	}
	if matchesAny(errStr, "unavailable", "503", "502", "500", "504",
		"internal server error", "bad gateway", "gateway timeout", "overloaded", "capacity") {
		return ActionRetry
	}
	if matchesAny(errStr, "408", "409", "timeout", "deadline", "connection") {
		return ActionRetry
	}
	if matchesAny(errStr, "400", "invalid", "bad request", "malformed") {
		return ActionFail
	}
	if matchesAny(errStr, "401", "unauthorized", "unauthenticated", "invalid api key") {
		return ActionFail
	}
	if matchesAny(errStr, "403", "forbidden", "permission denied") {
		return ActionFail
	}
	if matchesAny(errStr, "404", "not found") {
		return ActionFail
	}
	if matchesAny(errStr, "422", "unprocessable") {
		return ActionFail
	}

	// Unknown errors are retried once rather than dropped.
	return ActionRetry
}

func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict:
		return ActionRetry
	case statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ShouldFallback reports whether the next provider should be tried.
func ShouldFallback(err error) bool { return ClassifyError(err) == ActionFallback }

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool { return ClassifyError(err) == ActionRetry }

// IsPermanent reports whether retrying is pointless.
func IsPermanent(err error) bool { return ClassifyError(err) == ActionFail }

func matchesAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WrapError attaches provider and status information to an error.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}
