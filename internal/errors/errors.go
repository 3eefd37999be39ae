// Package errors provides domain-specific error types and sentinel errors
// for the NLU pipeline and task execution layers.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNoMatch indicates no rule or pattern matched the input.
	// Extraction components resolve this to absence, never to a failure.
	ErrNoMatch = errors.New("no match")

	// ErrLowConfidence indicates extraction succeeded but is unreliable.
	ErrLowConfidence = errors.New("low confidence extraction")

	// ErrAIUnavailable indicates the AI capability is unreachable or
	// returned unparsable output. Always handled locally with a
	// rule-based fallback, never surfaced to the user.
	ErrAIUnavailable = errors.New("ai capability unavailable")

	// ErrExecutionFailed indicates task execution reported failure.
	ErrExecutionFailed = errors.New("task execution failed")

	// ErrPendingExpired indicates a pending task exceeded its TTL.
	ErrPendingExpired = errors.New("pending task expired")

	// ErrStateCorrupted indicates conversation state could not be decoded.
	// Treated as context-absent by callers, never fatal.
	ErrStateCorrupted = errors.New("conversation state corrupted")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimitExceeded indicates an AI-call budget has been exhausted.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrMissingParameter indicates a required slot is missing.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrUnknownIntent indicates an intent outside the known set.
	ErrUnknownIntent = errors.New("unknown intent")
)

// ValidationError represents slot validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ExecutionError represents a task execution failure with retry context.
type ExecutionError struct {
	Intent  string
	Retries int
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error (intent=%s, retries=%d): %v", e.Intent, e.Retries, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new execution error.
func NewExecutionError(intent string, retries int, err error) *ExecutionError {
	return &ExecutionError{
		Intent:  intent,
		Retries: retries,
		Err:     err,
	}
}

// AIProviderError represents AI capability failures with provider context.
type AIProviderError struct {
	Provider string
	Op       string // classify, extract_slots
	Err      error
}

func (e *AIProviderError) Error() string {
	return fmt.Sprintf("ai provider error (provider=%s, op=%s): %v", e.Provider, e.Op, e.Err)
}

func (e *AIProviderError) Unwrap() error {
	return e.Err
}

// NewAIProviderError creates a new AI provider error.
func NewAIProviderError(provider, op string, err error) *AIProviderError {
	return &AIProviderError{
		Provider: provider,
		Op:       op,
		Err:      err,
	}
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers don't need to import both this package and stdlib errors.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
