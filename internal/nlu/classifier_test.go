package nlu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu/entity"
	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
)

func newTestClassifier(ai AIClassifier, cfg ClassifierConfig) *Classifier {
	log := logger.New("error")
	parser := timeparse.New(timeparse.Options{})
	ex := NewExtractor(entity.NewMatcher(parser), parser, nil, nil, ExtractorConfig{}, log)
	return NewClassifier(ex, ai, cfg, log)
}

type stubIntentAI struct {
	intent     string
	confidence float64
	err        error
	calls      int
}

func (s *stubIntentAI) ClassifyIntent(_ context.Context, _ string) (string, float64, error) {
	s.calls++
	return s.intent, s.confidence, s.err
}

func TestClassifyRules(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected Intent
	}{
		{"add with help verb", "幫小明每週三下午三點排數學課", IntentAddCourse},
		{"add with keyword", "新增一堂英文課", IntentAddCourse},
		{"cancel", "取消小明明天的數學課", IntentCancelCourse},
		{"query keyword", "查詢小明的課表", IntentQuerySchedule},
		{"query question form", "小明明天有什麼課", IntentQuerySchedule},
		{"modify", "小明的數學課改到下午四點", IntentModifyCourse},
		{"reminder", "提醒我晚上八點帶課本", IntentSetReminder},
		{"record", "記錄今天教了分數加減", IntentRecordContent},
		{"chitchat", "今天天氣如何", IntentUnknown},
		{"empty", "", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := c.Classify(context.Background(), tt.input, nil, now)
			if d.Intent != tt.expected {
				t.Errorf("Classify(%q).Intent = %q, want %q", tt.input, d.Intent, tt.expected)
			}
		})
	}
}

func TestClassifyConfirmationGating(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// Bare agreement without anything to agree to stays unknown.
	d := c.Classify(context.Background(), "好的", nil, now)
	if d.Intent != IntentUnknown {
		t.Errorf("Classify(好的) without context = %q, want unknown", d.Intent)
	}

	pending := &PendingSnapshot{HasRecentAction: true}
	d = c.Classify(context.Background(), "好的", pending, now)
	if d.Intent != IntentConfirmAction {
		t.Errorf("Classify(好的) with recent action = %q, want confirm_action", d.Intent)
	}
}

func TestClassifySupplementCompletesPending(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent: IntentAddCourse,
		Slots: SlotSet{
			SlotCourseName:   "數學課",
			SlotScheduleTime: "15:00",
			SlotDayOfWeek:    "週三",
		},
		Missing:   []SlotKey{SlotStudentName},
		Expecting: []ExpectType{ExpectStudentName},
		Age:       30 * time.Second,
	}

	d := c.Classify(context.Background(), "小明", pending, now)
	if d.Intent != IntentAddCourse {
		t.Fatalf("Intent = %q, want add_course (the original intent, not a supplement)", d.Intent)
	}
	if !d.PendingComplete {
		t.Error("PendingComplete = false, want true")
	}
	if d.SupplementValue != "小明" {
		t.Errorf("SupplementValue = %q, want 小明", d.SupplementValue)
	}
	if got, _ := d.MergedSlots.Get(SlotStudentName); got != "小明" {
		t.Errorf("MergedSlots[studentName] = %q, want 小明", got)
	}
	if got, _ := d.MergedSlots.Get(SlotCourseName); got != "數學課" {
		t.Errorf("MergedSlots[courseName] = %q, want 數學課", got)
	}
}

func TestClassifySupplementStillIncomplete(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent:    IntentAddCourse,
		Slots:     SlotSet{SlotScheduleTime: "15:00"},
		Missing:   []SlotKey{SlotStudentName, SlotCourseName},
		Expecting: []ExpectType{ExpectStudentName, ExpectCourseName},
		Age:       30 * time.Second,
	}

	d := c.Classify(context.Background(), "小明", pending, now)
	if d.Intent != IntentSupplementStudentName {
		t.Fatalf("Intent = %q, want supplement_student_name", d.Intent)
	}
	if d.Source != SourceSupplement {
		t.Errorf("Source = %q, want supplement", d.Source)
	}
	if d.PendingComplete {
		t.Error("PendingComplete = true for a still-incomplete task")
	}
	if got, _ := d.MergedSlots.Get(SlotStudentName); got != "小明" {
		t.Errorf("MergedSlots[studentName] = %q, want 小明", got)
	}
}

func TestClassifyIntentSwitchClearsPending(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent:    IntentAddCourse,
		Slots:     SlotSet{SlotCourseName: "數學課"},
		Expecting: []ExpectType{ExpectStudentName},
		Age:       30 * time.Second,
	}

	d := c.Classify(context.Background(), "查詢", pending, now)
	if d.Intent != IntentQuerySchedule {
		t.Errorf("Intent = %q, want query_schedule", d.Intent)
	}
	if !d.ClearPending {
		t.Error("ClearPending = false, want true on an explicit intent switch")
	}
}

func TestClassifyPendingExpired(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{PendingTTL: 2 * time.Minute})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent:    IntentAddCourse,
		Slots:     SlotSet{SlotCourseName: "數學課"},
		Expecting: []ExpectType{ExpectStudentName},
		Age:       3 * time.Minute,
	}

	// The bare name would have been a valid supplement; past the TTL it
	// must not be interpreted as one.
	d := c.Classify(context.Background(), "小明", pending, now)
	if d.Intent != IntentUnknown {
		t.Errorf("Intent = %q, want unknown after TTL expiry", d.Intent)
	}
	if !d.ClearPending {
		t.Error("ClearPending = false, want true after TTL expiry")
	}
	if d.PendingComplete {
		t.Error("PendingComplete = true for an expired pending task")
	}
}

func TestClassifyCancelWord(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent:    IntentAddCourse,
		Slots:     SlotSet{SlotCourseName: "數學課"},
		Expecting: []ExpectType{ExpectStudentName},
		Age:       10 * time.Second,
	}

	d := c.Classify(context.Background(), "算了", pending, now)
	if d.Intent != IntentCancelPending {
		t.Errorf("Intent = %q, want cancel_pending", d.Intent)
	}
	if !d.ClearPending {
		t.Error("ClearPending = false, want true on an explicit cancel word")
	}
}

func TestClassifyReminderTimeSupplement(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent:    IntentSetReminder,
		Slots:     SlotSet{SlotContent: "帶課本"},
		Missing:   []SlotKey{SlotReminderTime},
		Expecting: []ExpectType{ExpectTime},
		Age:       20 * time.Second,
	}

	d := c.Classify(context.Background(), "晚上八點", pending, now)
	if d.Intent != IntentSetReminder {
		t.Fatalf("Intent = %q, want set_reminder", d.Intent)
	}
	if !d.PendingComplete {
		t.Error("PendingComplete = false, want true")
	}
	if got, _ := d.MergedSlots.Get(SlotReminderTime); got != "20:00" {
		t.Errorf("MergedSlots[reminderTime] = %q, want 20:00", got)
	}
}

func TestClassifyCompleteInContext(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	pending := &PendingSnapshot{
		Intent:    IntentAddCourse,
		Slots:     SlotSet{SlotStudentName: "小明", SlotCourseName: "數學課"},
		Missing:   []SlotKey{SlotScheduleTime},
		Expecting: []ExpectType{ExpectTime},
		Age:       45 * time.Second,
	}

	d := c.Classify(context.Background(), "下午三點", pending, now)
	if d.Intent != IntentAddCourse || !d.PendingComplete {
		t.Fatalf("got (%q, complete=%v), want (add_course, true)", d.Intent, d.PendingComplete)
	}
	if d.Source != SourceContext {
		t.Errorf("Source = %q, want context", d.Source)
	}
	if got, _ := d.MergedSlots.Get(SlotScheduleTime); got != "15:00" {
		t.Errorf("MergedSlots[scheduleTime] = %q, want 15:00", got)
	}
}

func TestClassifyRetryAfterExecutionFailure(t *testing.T) {
	t.Parallel()
	c := newTestClassifier(nil, ClassifierConfig{})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	failed := func() *PendingSnapshot {
		return &PendingSnapshot{
			Intent: IntentAddCourse,
			Slots: SlotSet{
				SlotStudentName:  "小明",
				SlotCourseName:   "數學課",
				SlotScheduleTime: "15:00",
				SlotDayOfWeek:    "週三",
			},
			Age:             20 * time.Second,
			ExecutionFailed: true,
		}
	}

	t.Run("retry word re-fires with preserved slots", func(t *testing.T) {
		t.Parallel()
		d := c.Classify(context.Background(), "再試一次", failed(), now)
		if d.Intent != IntentAddCourse || !d.PendingComplete {
			t.Fatalf("got (%q, complete=%v), want (add_course, true)", d.Intent, d.PendingComplete)
		}
		if got, _ := d.MergedSlots.Get(SlotStudentName); got != "小明" {
			t.Errorf("MergedSlots[studentName] = %q, want 小明", got)
		}
	})

	t.Run("bare confirm word re-fires", func(t *testing.T) {
		t.Parallel()
		d := c.Classify(context.Background(), "確定", failed(), now)
		if d.Intent != IntentAddCourse || !d.PendingComplete {
			t.Fatalf("got (%q, complete=%v), want (add_course, true)", d.Intent, d.PendingComplete)
		}
	})

	t.Run("corrected field overrides and re-fires", func(t *testing.T) {
		t.Parallel()
		d := c.Classify(context.Background(), "下午四點", failed(), now)
		if d.Intent != IntentAddCourse || !d.PendingComplete {
			t.Fatalf("got (%q, complete=%v), want (add_course, true)", d.Intent, d.PendingComplete)
		}
		if got, _ := d.MergedSlots.Get(SlotScheduleTime); got != "16:00" {
			t.Errorf("MergedSlots[scheduleTime] = %q, want corrected 16:00", got)
		}
	})

	t.Run("unrelated chatter stays unknown", func(t *testing.T) {
		t.Parallel()
		d := c.Classify(context.Background(), "今天天氣如何", failed(), now)
		if d.Intent != IntentUnknown {
			t.Errorf("Intent = %q, want unknown", d.Intent)
		}
		if d.PendingComplete {
			t.Error("chatter must not re-fire the failed task")
		}
	})

	t.Run("cancel word drops the failed task", func(t *testing.T) {
		t.Parallel()
		d := c.Classify(context.Background(), "算了", failed(), now)
		if d.Intent != IntentCancelPending || !d.ClearPending {
			t.Errorf("got (%q, clear=%v), want (cancel_pending, true)", d.Intent, d.ClearPending)
		}
	})
}

func TestClassifyAIFallback(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ai       *stubIntentAI
		expected Intent
		source   ClassifySource
	}{
		{
			name:     "accepted above threshold",
			ai:       &stubIntentAI{intent: "add_course", confidence: 0.9},
			expected: IntentAddCourse,
			source:   SourceAI,
		},
		{
			name:     "rejected below threshold",
			ai:       &stubIntentAI{intent: "add_course", confidence: 0.4},
			expected: IntentUnknown,
			source:   SourceFallback,
		},
		{
			name:     "provider error degrades",
			ai:       &stubIntentAI{err: errors.New("quota exhausted")},
			expected: IntentUnknown,
			source:   SourceFallback,
		},
		{
			name:     "unknown label rejected",
			ai:       &stubIntentAI{intent: "chitchat", confidence: 0.95},
			expected: IntentUnknown,
			source:   SourceFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClassifier(tt.ai, ClassifierConfig{AIFallback: true, AIMinConfidence: 0.65})
			d := c.Classify(context.Background(), "那個東西弄一下", nil, now)
			if d.Intent != tt.expected || d.Source != tt.source {
				t.Errorf("got (%q, %q), want (%q, %q)", d.Intent, d.Source, tt.expected, tt.source)
			}
			if tt.ai.calls != 1 {
				t.Errorf("AI called %d times, want 1", tt.ai.calls)
			}
		})
	}
}

func TestClassifyAIDisabled(t *testing.T) {
	t.Parallel()
	ai := &stubIntentAI{intent: "add_course", confidence: 0.9}
	c := newTestClassifier(ai, ClassifierConfig{AIFallback: false})
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	d := c.Classify(context.Background(), "那個東西弄一下", nil, now)
	if d.Intent != IntentUnknown {
		t.Errorf("Intent = %q, want unknown with AI fallback off", d.Intent)
	}
	if ai.calls != 0 {
		t.Errorf("AI called %d times, want 0", ai.calls)
	}
}

func TestParseIntent(t *testing.T) {
	t.Parallel()
	if intent, ok := ParseIntent("query_schedule"); !ok || intent != IntentQuerySchedule {
		t.Errorf("ParseIntent(query_schedule) = (%q, %v)", intent, ok)
	}
	if _, ok := ParseIntent("make_coffee"); ok {
		t.Error("ParseIntent(make_coffee) accepted an unknown label")
	}
}
