// Package errors provides error wrapping utilities for consistent error handling.
package errors

import (
	"fmt"
)

// WrappedError contains both internal error details and a user-facing message.
// The user message is always phrased as a request for more information or a
// retry, never as a raw internal error.
type WrappedError struct {
	Operation   string // Operation being performed (e.g., "extract_slots", "trigger_task")
	Module      string // Module name (e.g., "intent", "slots", "task")
	Cause       error  // Underlying error
	UserMessage string // User-friendly message
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// Wrap wraps an error with module/operation context and a user message.
// Returns nil if err is nil.
func Wrap(module, operation string, err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   operation,
		Module:      module,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// Wrapf wraps an error with a formatted user message.
func Wrapf(module, operation string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(module, operation, err, fmt.Sprintf(format, args...))
}

// GetUserMessage returns the user-friendly message from a WrappedError.
// Returns the error string if not a WrappedError.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var wrapped *WrappedError
	if As(err, &wrapped) {
		return wrapped.UserMessage
	}
	return err.Error()
}
