// Package ctxutil carries per-message tracing values through the
// processing pipeline. The webhook handler sets them once; the logger's
// context handler reads them back so every log line from a message can
// be correlated without threading IDs through call signatures.
package ctxutil

import (
	"context"
)

// ctxKey is unexported so no other package can collide with our values.
type ctxKey int

const (
	userIDKey ctxKey = iota
	requestIDKey
)

// WithUserID stores the sender's LINE user ID on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the LINE user ID, or "" when the context carries
// none. A non-string value under the key also yields "".
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// WithRequestID stores the webhook event ID used for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// PreserveTracing copies the tracing values onto a fresh background
// context. Webhook events are processed after the HTTP 200 has been
// sent, so the work must not inherit the request's cancellation, and
// holding the parent context alive would pin its whole value chain.
func PreserveTracing(ctx context.Context) context.Context {
	detached := context.Background()

	if userID := GetUserID(ctx); userID != "" {
		detached = WithUserID(detached, userID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		detached = WithRequestID(detached, requestID)
	}

	return detached
}
