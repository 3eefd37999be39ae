// Package conversation tracks short-lived per-user dialogue state: the
// pending task awaiting supplements, the expected-input queue, recently
// mentioned entities and the last executed action. State is held in memory
// with two TTL layers (a short one for pending input, a longer one for the
// whole context) and every mutation for a user is serialized.
package conversation

import (
	"time"

	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

// PendingStatus tracks why a task is still pending.
type PendingStatus string

const (
	// StatusAwaitingInput means slots are incomplete.
	StatusAwaitingInput PendingStatus = "awaiting_input"
	// StatusExecutionFailed means the task was complete but execution
	// failed retryably; slots are preserved for resubmission.
	StatusExecutionFailed PendingStatus = "execution_failed"
)

// PendingTask is a partially specified task waiting for supplements, or a
// complete one rolled back after a retryable execution failure.
type PendingTask struct {
	Intent    nlu.Intent
	Slots     nlu.SlotSet
	Missing   []nlu.SlotKey
	Status    PendingStatus
	RetryCount int
	LastError  string
	CreatedAt time.Time
}

// ActionRecord remembers the last executed task for confirmation and
// follow-up turns.
type ActionRecord struct {
	Intent     nlu.Intent
	Slots      nlu.SlotSet
	ExecutedAt time.Time
}

// Context is one user's dialogue state. All fields are owned by the Manager;
// callers only ever see copies.
type Context struct {
	UserID  string
	Pending *PendingTask
	// Expecting mirrors Pending.Missing as input types. Always cleared
	// together with Pending.
	Expecting []nlu.ExpectType
	// AwaitingConfirmation marks an in-flight confirm prompt.
	AwaitingConfirmation bool
	// QueryStudent pins the student of an active query session.
	// QueryStudentAt bounds the pin's lifetime; queries are short-lived
	// sessions, not context-long defaults.
	QueryStudent   string
	QueryStudentAt time.Time
	// Students and Courses are entities mentioned in recent turns,
	// newest last.
	Students []string
	Courses  []string

	LastIntent nlu.Intent
	LastAction *ActionRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

// clone returns a deep copy so callers never alias manager-owned state.
func (c *Context) clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	if c.Pending != nil {
		p := *c.Pending
		p.Slots = c.Pending.Slots.Clone()
		p.Missing = append([]nlu.SlotKey(nil), c.Pending.Missing...)
		out.Pending = &p
	}
	out.Expecting = append([]nlu.ExpectType(nil), c.Expecting...)
	out.Students = append([]string(nil), c.Students...)
	out.Courses = append([]string(nil), c.Courses...)
	if c.LastAction != nil {
		a := *c.LastAction
		a.Slots = c.LastAction.Slots.Clone()
		out.LastAction = &a
	}
	return &out
}

// expectingFor derives the expected-input queue from missing slots,
// preserving ask order and deduplicating input types.
func expectingFor(missing []nlu.SlotKey) []nlu.ExpectType {
	var out []nlu.ExpectType
	seen := make(map[nlu.ExpectType]struct{}, len(missing))
	for _, key := range missing {
		expect, ok := nlu.ExpectTypeForSlot(key)
		if !ok {
			continue
		}
		if _, dup := seen[expect]; dup {
			continue
		}
		seen[expect] = struct{}{}
		out = append(out, expect)
	}
	return out
}

// appendRecent appends value to a bounded most-recent list, dropping the
// oldest entry and deduplicating repeats.
func appendRecent(list []string, value string, max int) []string {
	if value == "" {
		return list
	}
	for i, v := range list {
		if v == value {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, value)
	if len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}
