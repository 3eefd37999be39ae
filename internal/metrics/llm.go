package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level LLM metrics. They stay nil until RegisterLLM runs, so the
// parser chain can record without holding a Metrics instance. Callers must
// nil-check before use.
var (
	LLMTotal           *prometheus.CounterVec
	LLMDuration        *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec
	LLMFallbackLatency *prometheus.HistogramVec
)

// RegisterLLM registers the LLM provider metrics with the given registry.
// Call once at startup before any parser runs.
func RegisterLLM(registry *prometheus.Registry) {
	LLMTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbot_llm_requests_total",
			Help: "Total number of LLM requests by provider, operation and status",
		},
		[]string{"provider", "operation", "status"}, // operation: parse, fill_slots
	)

	LLMDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorbot_llm_duration_seconds",
			Help:    "LLM request duration in seconds by provider and operation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"provider", "operation"},
	)

	LLMFallbackTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorbot_llm_fallback_total",
			Help: "Total number of cross-provider fallbacks",
		},
		[]string{"from_provider", "to_provider", "operation"},
	)

	LLMFallbackLatency = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorbot_llm_fallback_latency_seconds",
			Help:    "Total latency of requests that needed a fallback",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"from_provider", "to_provider", "operation"},
	)
}
