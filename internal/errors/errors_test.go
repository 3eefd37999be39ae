package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "ErrAIUnavailable is recognized when wrapped",
			err:      fmt.Errorf("classify turn: %w", ErrAIUnavailable),
			target:   ErrAIUnavailable,
			expected: true,
		},
		{
			name:     "ErrPendingExpired is recognized",
			err:      ErrPendingExpired,
			target:   ErrPendingExpired,
			expected: true,
		},
		{
			name:     "different sentinel does not match",
			err:      ErrStateCorrupted,
			target:   ErrExecutionFailed,
			expected: false,
		},
		{
			name:     "joined errors are recognized",
			err:      errors.Join(ErrLowConfidence, errors.New("fill rate 0.3")),
			target:   ErrLowConfidence,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.expected {
				t.Errorf("Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.expected)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("scheduleTime", "hour out of range")

	var ve *ValidationError
	if !As(err, &ve) {
		t.Fatal("expected As to find *ValidationError")
	}
	if ve.Field != "scheduleTime" {
		t.Errorf("Field = %q, want %q", ve.Field, "scheduleTime")
	}
	if got := err.Error(); got != "validation failed on scheduleTime: hour out of range" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	err := NewExecutionError("add_course", 2, ErrExecutionFailed)

	if !Is(err, ErrExecutionFailed) {
		t.Error("expected ExecutionError to unwrap to ErrExecutionFailed")
	}
	want := "execution error (intent=add_course, retries=2): task execution failed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAIProviderErrorUnwrap(t *testing.T) {
	err := NewAIProviderError("gemini", "classify", ErrTimeout)

	if !Is(err, ErrTimeout) {
		t.Error("expected AIProviderError to unwrap to ErrTimeout")
	}
	if got := err.Error(); got != "ai provider error (provider=gemini, op=classify): operation timed out" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap("slots", "extract", nil, "unused"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestGetUserMessage(t *testing.T) {
	inner := errors.New("sqlite: disk I/O error")
	err := Wrap("conversation", "save_context", inner, "請再試一次")

	if got := GetUserMessage(err); got != "請再試一次" {
		t.Errorf("GetUserMessage = %q, want user-facing message", got)
	}
	if got := GetUserMessage(inner); got != inner.Error() {
		t.Errorf("GetUserMessage fallback = %q", got)
	}
}
