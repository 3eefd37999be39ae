package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// NLU metrics
	IntentTotal         *prometheus.CounterVec
	IntentConfidence    *prometheus.HistogramVec
	SlotExtractionTotal *prometheus.CounterVec
	EntityMatchTotal    *prometheus.CounterVec
	NLUDurationSeconds  *prometheus.HistogramVec

	// Conversation state metrics
	PendingTasksTotal  *prometheus.CounterVec
	ActiveContexts     prometheus.Gauge
	SupplementTotal    *prometheus.CounterVec

	// Task execution metrics
	TaskExecutionTotal   *prometheus.CounterVec
	TaskDurationSeconds  *prometheus.HistogramVec
	TaskRetryTotal       *prometheus.CounterVec
	TaskRollbackTotal    *prometheus.CounterVec

	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterWaitDuration *prometheus.HistogramVec
	RateLimiterDropped      *prometheus.CounterVec
	RateLimiterUsers        prometheus.Gauge
	LLMRateLimiterUsers     prometheus.Gauge

	// Review queue metrics
	ReviewQueuedTotal  *prometheus.CounterVec
	ReviewDroppedTotal prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// NLU metrics
		IntentTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_intent_total",
				Help: "Total number of intent classifications by intent and source",
			},
			[]string{"intent", "source"}, // source: rule, supplement, context, ai
		),

		IntentConfidence: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_intent_confidence",
				Help:    "Intent classification confidence distribution by source",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"source"},
		),

		SlotExtractionTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_slot_extraction_total",
				Help: "Total number of slot extractions by intent and completeness",
			},
			[]string{"intent", "status"}, // status: complete, incomplete
		),

		EntityMatchTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_entity_match_total",
				Help: "Total number of entity pattern matches by entity type",
			},
			[]string{"entity_type"}, // entity_type: student, course, time, date
		),

		NLUDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_nlu_duration_seconds",
				Help:    "NLU pipeline duration in seconds by stage",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"stage"}, // stage: classify, extract
		),

		// Conversation state metrics
		PendingTasksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_pending_tasks_total",
				Help: "Total number of pending task transitions by outcome",
			},
			[]string{"outcome"}, // outcome: created, completed, canceled, expired, switched
		),

		ActiveContexts: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "tutorbot_active_contexts",
				Help: "Number of user conversation contexts currently cached",
			},
		),

		SupplementTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_supplement_total",
				Help: "Total number of supplement turns by expected field type",
			},
			[]string{"expect_type"}, // expect_type: student_name, course_name, time, date, confirmation
		),

		// Task execution metrics
		TaskExecutionTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_task_execution_total",
				Help: "Total number of task executions by task type and status",
			},
			[]string{"task_type", "status"}, // status: success, error, rolled_back
		),

		TaskDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_task_duration_seconds",
				Help:    "Task execution duration in seconds by task type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"task_type"},
		),

		TaskRetryTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_task_retry_total",
				Help: "Total number of task execution retries by task type",
			},
			[]string{"task_type"},
		),

		TaskRollbackTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_task_rollback_total",
				Help: "Total number of pending-state rollbacks after retryable failures",
			},
			[]string{"task_type"},
		),

		// Webhook metrics
		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_webhook_duration_seconds",
				Help:    "Webhook processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"event_type"}, // event_type: message, postback, follow
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_webhook_requests_total",
				Help: "Total number of webhook requests by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		// Rate limiter metrics
		RateLimiterWaitDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_rate_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for rate limiter token by limiter type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"limiter_type"}, // limiter_type: user, llm, global
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),

		RateLimiterUsers: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "tutorbot_rate_limiter_users",
				Help: "Number of users with active per-user rate limiters",
			},
		),

		LLMRateLimiterUsers: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "tutorbot_llm_rate_limiter_users",
				Help: "Number of users with active LLM rate limiters",
			},
		),

		// Review queue metrics
		ReviewQueuedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_review_queued_total",
				Help: "Total number of utterances queued for manual review by reason",
			},
			[]string{"reason"}, // reason: low_confidence, ambiguous_entity, validation
		),

		ReviewDroppedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "tutorbot_review_dropped_total",
				Help: "Total number of review entries dropped because the queue was full",
			},
		),
	}

	return m
}

// RecordIntent records an intent classification result
func (m *Metrics) RecordIntent(intent, source string, confidence float64) {
	m.IntentTotal.WithLabelValues(intent, source).Inc()
	m.IntentConfidence.WithLabelValues(source).Observe(confidence)
}

// RecordSlotExtraction records a slot extraction outcome
func (m *Metrics) RecordSlotExtraction(intent string, complete bool) {
	status := "incomplete"
	if complete {
		status = "complete"
	}
	m.SlotExtractionTotal.WithLabelValues(intent, status).Inc()
}

// RecordEntityMatch records an entity pattern match
func (m *Metrics) RecordEntityMatch(entityType string) {
	m.EntityMatchTotal.WithLabelValues(entityType).Inc()
}

// RecordNLUDuration records NLU pipeline stage duration
func (m *Metrics) RecordNLUDuration(stage string, duration float64) {
	m.NLUDurationSeconds.WithLabelValues(stage).Observe(duration)
}

// RecordPendingTransition records a pending task lifecycle transition
func (m *Metrics) RecordPendingTransition(outcome string) {
	m.PendingTasksTotal.WithLabelValues(outcome).Inc()
}

// SetActiveContexts updates the active context gauge
func (m *Metrics) SetActiveContexts(n int) {
	m.ActiveContexts.Set(float64(n))
}

// RecordSupplement records a supplement turn
func (m *Metrics) RecordSupplement(expectType string) {
	m.SupplementTotal.WithLabelValues(expectType).Inc()
}

// RecordTaskExecution records a task execution with status
func (m *Metrics) RecordTaskExecution(taskType, status string, duration float64) {
	m.TaskExecutionTotal.WithLabelValues(taskType, status).Inc()
	m.TaskDurationSeconds.WithLabelValues(taskType).Observe(duration)
}

// RecordTaskRetry records a task execution retry
func (m *Metrics) RecordTaskRetry(taskType string) {
	m.TaskRetryTotal.WithLabelValues(taskType).Inc()
}

// RecordTaskRollback records a pending-state rollback
func (m *Metrics) RecordTaskRollback(taskType string) {
	m.TaskRollbackTotal.WithLabelValues(taskType).Inc()
}

// RecordWebhook records a webhook request
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordRateLimiterWait records time spent waiting for rate limiter
func (m *Metrics) RecordRateLimiterWait(limiterType string, duration float64) {
	m.RateLimiterWaitDuration.WithLabelValues(limiterType).Observe(duration)
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterUsers updates the per-user limiter gauge
func (m *Metrics) SetRateLimiterUsers(n int) {
	m.RateLimiterUsers.Set(float64(n))
}

// SetLLMRateLimiterUsers updates the LLM limiter gauge
func (m *Metrics) SetLLMRateLimiterUsers(n int) {
	m.LLMRateLimiterUsers.Set(float64(n))
}

// RecordReviewQueued records an utterance queued for manual review
func (m *Metrics) RecordReviewQueued(reason string) {
	m.ReviewQueuedTotal.WithLabelValues(reason).Inc()
}

// RecordReviewDropped records a review entry dropped on queue overflow
func (m *Metrics) RecordReviewDropped() {
	m.ReviewDroppedTotal.Inc()
}
