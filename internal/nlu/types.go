// Package nlu implements intent classification and slot extraction for
// task-oriented utterances: layered rule heuristics with explicit precedence,
// confidence scoring that gates an AI fallback, and the multi-turn
// supplement-merge protocol over pending tasks.
package nlu

import "time"

// Intent is the classified purpose of a user utterance. Immutable once
// assigned to a turn; derived, never stored long-term.
type Intent string

const (
	IntentAddCourse     Intent = "add_course"
	IntentQuerySchedule Intent = "query_schedule"
	IntentCancelCourse  Intent = "cancel_course"
	IntentModifyCourse  Intent = "modify_course"
	IntentSetReminder   Intent = "set_reminder"
	IntentRecordContent Intent = "record_content"
	IntentConfirmAction Intent = "confirm_action"
	IntentUnknown       Intent = "unknown"

	// Supplement intents name the slot a follow-up turn is filling.
	IntentSupplementStudentName Intent = "supplement_student_name"
	IntentSupplementCourseName  Intent = "supplement_course_name"
	IntentSupplementTime        Intent = "supplement_time"
	IntentSupplementDate        Intent = "supplement_date"
)

// IsSupplement reports whether the intent is a supplement turn.
func (i Intent) IsSupplement() bool {
	switch i {
	case IntentSupplementStudentName, IntentSupplementCourseName,
		IntentSupplementTime, IntentSupplementDate:
		return true
	}
	return false
}

// String returns the string representation of the intent.
func (i Intent) String() string {
	return string(i)
}

// SlotKey names a typed task parameter.
type SlotKey string

const (
	SlotStudentName    SlotKey = "studentName"
	SlotCourseName     SlotKey = "courseName"
	SlotScheduleTime   SlotKey = "scheduleTime" // HH:MM
	SlotCourseDate     SlotKey = "courseDate"   // YYYY-MM-DD
	SlotDayOfWeek      SlotKey = "dayOfWeek"    // canonical 週一..週日
	SlotRecurring      SlotKey = "recurring"    // "true" / "false"
	SlotRecurrenceType SlotKey = "recurrenceType"
	SlotReminderTime   SlotKey = "reminderTime" // HH:MM
	SlotContent        SlotKey = "content"
	SlotScope          SlotKey = "scope" // 今天 / 本週 / 下週 / 全部
)

// SlotSet maps slot names to extracted values. Unset fields are omitted from
// the map entirely, never represented as "" or a literal "null".
type SlotSet map[SlotKey]string

// Get returns the slot value and whether it is present (non-empty).
func (s SlotSet) Get(key SlotKey) (string, bool) {
	v, ok := s[key]
	return v, ok && v != ""
}

// Has reports whether the slot holds a usable value.
func (s SlotSet) Has(key SlotKey) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores a value, dropping empty and null-like inputs.
func (s SlotSet) Set(key SlotKey, value string) {
	if isNullLike(value) {
		return
	}
	s[key] = value
}

// Clone returns an independent copy.
func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// MergeMissing copies values from other into fields s does not already hold.
// Existing values always win on conflict.
func (s SlotSet) MergeMissing(other SlotSet) {
	for k, v := range other {
		if !s.Has(k) {
			s.Set(k, v)
		}
	}
}

// isNullLike detects empty and literal null-ish strings that must be treated
// as absence rather than values.
func isNullLike(v string) bool {
	switch v {
	case "", "null", "NULL", "Null", "nil", "none", "None", "undefined", "無", "没有", "沒有":
		return true
	}
	return false
}

// ExtractionResult is the per-turn output of slot extraction.
// Produced fresh each turn and never persisted directly.
type ExtractionResult struct {
	Slots      SlotSet
	Confidence float64
	Issues     []string
}

// ExpectType names which slot kind a pending task is awaiting.
type ExpectType string

const (
	ExpectStudentName ExpectType = "student_name"
	ExpectCourseName  ExpectType = "course_name"
	ExpectTime        ExpectType = "time"
	ExpectDate        ExpectType = "date"
)

// SupplementIntent returns the supplement intent that fills this input type.
func (e ExpectType) SupplementIntent() Intent {
	switch e {
	case ExpectStudentName:
		return IntentSupplementStudentName
	case ExpectCourseName:
		return IntentSupplementCourseName
	case ExpectTime:
		return IntentSupplementTime
	case ExpectDate:
		return IntentSupplementDate
	}
	return IntentUnknown
}

// SlotKey returns the slot the input type fills.
func (e ExpectType) SlotKey() SlotKey {
	switch e {
	case ExpectStudentName:
		return SlotStudentName
	case ExpectCourseName:
		return SlotCourseName
	case ExpectTime:
		return SlotScheduleTime
	case ExpectDate:
		return SlotCourseDate
	}
	return ""
}

// ExpectTypeForSlot returns the input type awaited for a missing slot.
// Weekday gaps are asked for as dates.
func ExpectTypeForSlot(key SlotKey) (ExpectType, bool) {
	switch key {
	case SlotStudentName:
		return ExpectStudentName, true
	case SlotCourseName:
		return ExpectCourseName, true
	case SlotScheduleTime, SlotReminderTime:
		return ExpectTime, true
	case SlotCourseDate, SlotDayOfWeek:
		return ExpectDate, true
	}
	return "", false
}

// PendingSnapshot is a read-only view of a user's pending task, assembled by
// the caller from conversation state for one classification turn.
type PendingSnapshot struct {
	Intent    Intent
	Slots     SlotSet
	Missing   []SlotKey
	Expecting []ExpectType
	Age       time.Duration
	// ExecutionFailed marks a task rolled back after a retryable execution
	// failure; its slots are complete and it may be re-fired.
	ExecutionFailed bool
	// HasRecentAction gates confirm/modify/cancel style intents.
	HasRecentAction bool
	// AwaitingConfirmation marks an explicit confirm prompt in flight.
	AwaitingConfirmation bool
}

// HasPending reports whether a pending task is present in the snapshot.
func (p *PendingSnapshot) HasPending() bool {
	return p != nil && p.Intent != "" && p.Intent != IntentUnknown
}

// ContextHints carries safe-to-infer entities from conversation state into
// extraction. Auto-fill from these is disabled by default and only applied
// for intents on an explicit allow-list.
type ContextHints struct {
	Students     []string
	Courses      []string
	QueryStudent string // student pinned by an active query session
}

// ClassifySource records which stage produced the classification.
type ClassifySource string

const (
	SourceRule       ClassifySource = "rule"
	SourceContext    ClassifySource = "context"    // complete-in-context merge
	SourceSupplement ClassifySource = "supplement" // supplement_* match
	SourceAI         ClassifySource = "ai"
	SourceFallback   ClassifySource = "fallback" // none matched
)

// Decision is the classifier output for one turn. State mutations implied by
// the decision (clearing pending input, attaching merged slots) are applied
// by the caller through the conversation store.
type Decision struct {
	Intent Intent
	Source ClassifySource
	// MergedSlots holds pending slots merged with this turn's extraction
	// when Source is SourceContext or SourceSupplement.
	MergedSlots SlotSet
	// SupplementValue is the single extracted value of a supplement turn.
	SupplementValue string
	// ClearPending instructs the caller to atomically drop the pending task
	// and its expecting-input queue (TTL expiry or intent switch).
	ClearPending bool
	// PendingComplete marks a complete-in-context merge that satisfied the
	// original intent's completion predicate.
	PendingComplete bool
}
