package task

import (
	"context"
	"fmt"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/conversation"
	apperrors "github.com/weilintsai/tutorbot-go/internal/errors"
	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/metrics"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

// Executor is the external task-execution capability. The trigger only
// decides when enough information exists to call it; domain lookups and
// conflict checks live behind this interface.
type Executor interface {
	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResult, error)
}

// ExecutionResult is the executor's outcome.
type ExecutionResult struct {
	Success bool
	// Message is the user-facing reply on success, or the failure
	// explanation otherwise.
	Message string
}

// Outcome is what the dialogue layer renders after a trigger attempt.
type Outcome struct {
	Success bool
	Message string
	// Retryable marks a failure that preserved the pending state, so the
	// user can correct and resend without re-entering known slots.
	Retryable bool
	// Retries is the current retry counter after a failure.
	Retries int
}

// Config tunes the trigger.
type Config struct {
	// ExecutionTimeout bounds one executor call.
	ExecutionTimeout time.Duration
	// HistorySize bounds the rolling execution history.
	HistorySize int
}

func (c *Config) applyDefaults() {
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = 10 * time.Second
	}
}

// Trigger owns the completion-to-execution handoff.
type Trigger struct {
	exec    Executor
	conv    *conversation.Manager
	stats   *Stats
	metrics *metrics.Metrics
	cfg     Config
	log     *logger.Logger
}

// NewTrigger creates a trigger. metrics may be nil in tests.
func NewTrigger(exec Executor, conv *conversation.Manager, m *metrics.Metrics, cfg Config, log *logger.Logger) *Trigger {
	cfg.applyDefaults()
	return &Trigger{
		exec:    exec,
		conv:    conv,
		stats:   NewStats(cfg.HistorySize),
		metrics: m,
		cfg:     cfg,
		log:     log.WithModule("task"),
	}
}

// Stats exposes the execution counters for the stats endpoint.
func (t *Trigger) Stats() *Stats { return t.stats }

// Fire converts the slot set, runs the executor and settles the
// conversation state: success records the action and clears the pending
// task, failure rolls back to a retryable execution_failed pending state.
func (t *Trigger) Fire(ctx context.Context, userID string, intent nlu.Intent, slots nlu.SlotSet) (*Outcome, error) {
	now := time.Now()

	req, err := BuildContract(intent, userID, slots, now)
	if err != nil {
		// A contract failure means a slot slipped through validation.
		// Not retryable as-is; the user has to restate the bad field.
		t.conv.ClearPending(userID)
		t.record(intent, userID, false, err.Error(), 0, now)
		return nil, apperrors.Wrap("task", "build_contract", err, "這個時間看起來不太對，請再說一次")
	}

	execCtx, cancel := context.WithTimeout(ctx, t.cfg.ExecutionTimeout)
	defer cancel()

	start := time.Now()
	result, err := t.exec.Execute(execCtx, req)
	duration := time.Since(start)

	if err != nil || result == nil || !result.Success {
		cause := "execution failed"
		if err != nil {
			cause = err.Error()
		} else if result != nil && result.Message != "" {
			cause = result.Message
		}

		t.conv.MarkExecutionFailed(userID, intent, slots, cause, now)
		t.record(intent, userID, false, cause, duration, now)
		if t.metrics != nil {
			t.metrics.RecordTaskRollback(intent.String())
		}
		t.log.WithError(err).WithFields(map[string]any{
			"intent":  intent,
			"user_id": userID,
			"cause":   cause,
		}).Warnf("task execution failed, pending state preserved")

		pending := t.conv.Get(userID)
		retries := 0
		if pending != nil && pending.Pending != nil {
			retries = pending.Pending.RetryCount
		}
		return &Outcome{
			Success:   false,
			Message:   "剛剛沒有成功，請稍後再試一次，已填的資料都還在",
			Retryable: true,
			Retries:   retries,
		}, fmt.Errorf("%w: %s", apperrors.ErrExecutionFailed, cause)
	}

	t.conv.RecordAction(userID, intent, slots, now)
	t.conv.NoteEntities(userID, slots)
	t.record(intent, userID, true, "", duration, now)

	return &Outcome{Success: true, Message: result.Message}, nil
}

func (t *Trigger) record(intent nlu.Intent, userID string, success bool, cause string, duration time.Duration, now time.Time) {
	t.stats.Record(ExecutionRecord{
		Intent:     intent.String(),
		UserID:     userID,
		Success:    success,
		Error:      cause,
		Duration:   duration,
		ExecutedAt: now,
	})
	if t.metrics != nil {
		status := "success"
		if !success {
			status = "error"
		}
		t.metrics.RecordTaskExecution(intent.String(), status, duration.Seconds())
	}
}
