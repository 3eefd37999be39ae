package sentry

import (
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

// resetHub detaches any client a previous test bound to the global hub.
func resetHub() {
	sentry.CurrentHub().BindClient(nil)
}

func TestInitialize_EmptyDSN(t *testing.T) {
	// Not parallel: IsEnabled reads the process-global hub
	resetHub()

	// Should return nil when DSN is empty (disabled)
	err := Initialize(Config{DSN: ""})
	if err != nil {
		t.Errorf("Expected nil error for empty DSN, got %v", err)
	}

	if IsEnabled() {
		t.Error("Expected IsEnabled() to return false when DSN is empty")
	}
}

func TestInitialize_InvalidDSN(t *testing.T) {
	// Not parallel: Initialize writes the process-global hub

	err := Initialize(Config{DSN: "not-a-dsn"})
	if err == nil {
		t.Error("Expected error for malformed DSN")
	}
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Cannot use t.Parallel() as Sentry uses global state

	err := Initialize(Config{
		DSN:         "https://public@sentry.example.com/1",
		Environment: "test",
		SampleRate:  1.0,
	})
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	if !IsEnabled() {
		t.Error("Expected IsEnabled() to return true after initialization")
	}

	// Clean up - flush any pending events
	Flush(time.Second)
}

func TestInitialize_DefaultSampleRate(t *testing.T) {
	// Cannot use t.Parallel() as Sentry uses global state

	// Zero sample rate should default to 1.0
	err := Initialize(Config{
		DSN:        "https://public@sentry.example.com/2",
		SampleRate: 0,
	})
	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	Flush(time.Second)
}

func TestFlush(t *testing.T) {
	t.Parallel()

	// Flush should complete quickly when there are no events
	result := Flush(100 * time.Millisecond)
	if !result {
		t.Error("Expected Flush to return true when no events pending")
	}
}
