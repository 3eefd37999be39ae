package task

import (
	"testing"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local) // Monday

func TestBuildContract_AddCourse(t *testing.T) {
	t.Parallel()
	slots := nlu.SlotSet{
		nlu.SlotStudentName:    "小明",
		nlu.SlotCourseName:     "數學課",
		nlu.SlotScheduleTime:   "15:00",
		nlu.SlotCourseDate:     "2026-03-04",
		nlu.SlotRecurring:      "true",
		nlu.SlotRecurrenceType: "weekly",
	}

	req, err := BuildContract(nlu.IntentAddCourse, "user-1", slots, testNow)
	if err != nil {
		t.Fatalf("BuildContract() error = %v", err)
	}

	if req.Intent != "add_course" || req.UserID != "user-1" {
		t.Errorf("req = %+v, want intent add_course for user-1", req)
	}
	if req.Entities[EntityStudentName] != "小明" {
		t.Errorf("student_name = %q, want 小明", req.Entities[EntityStudentName])
	}
	if req.Entities[EntityCourseName] != "數學課" {
		t.Errorf("course_name = %q, want 數學課", req.Entities[EntityCourseName])
	}
	if req.Entities[EntityDate] != "2026-03-04" {
		t.Errorf("date = %q, want 2026-03-04", req.Entities[EntityDate])
	}
	if req.Entities[EntityRecurrence] != "weekly" {
		t.Errorf("recurrence = %q, want weekly", req.Entities[EntityRecurrence])
	}

	wantStart := time.Date(2026, 3, 4, 15, 0, 0, 0, time.Local).Format(time.RFC3339)
	wantEnd := time.Date(2026, 3, 4, 16, 0, 0, 0, time.Local).Format(time.RFC3339)
	if req.Entities[EntityStartTime] != wantStart {
		t.Errorf("start_time = %q, want %q", req.Entities[EntityStartTime], wantStart)
	}
	if req.Entities[EntityEndTime] != wantEnd {
		t.Errorf("end_time = %q, want %q", req.Entities[EntityEndTime], wantEnd)
	}
}

func TestBuildContract_WeekdayResolvesDate(t *testing.T) {
	t.Parallel()
	slots := nlu.SlotSet{
		nlu.SlotStudentName: "小華",
		nlu.SlotCourseName:  "英文課",
		nlu.SlotDayOfWeek:   "週三",
	}

	req, err := BuildContract(nlu.IntentCancelCourse, "user-1", slots, testNow)
	if err != nil {
		t.Fatalf("BuildContract() error = %v", err)
	}
	// Monday 2026-03-02 plus two days.
	if req.Entities[EntityDate] != "2026-03-04" {
		t.Errorf("date = %q, want 2026-03-04", req.Entities[EntityDate])
	}
	if req.Entities[EntityDayOfWeek] != "週三" {
		t.Errorf("day_of_week = %q, want 週三", req.Entities[EntityDayOfWeek])
	}
}

func TestBuildContract_TimeWithoutDate(t *testing.T) {
	t.Parallel()
	slots := nlu.SlotSet{
		nlu.SlotReminderTime: "20:00",
		nlu.SlotContent:      "帶課本",
		nlu.SlotScheduleTime: "20:00",
	}

	req, err := BuildContract(nlu.IntentSetReminder, "user-1", slots, testNow)
	if err != nil {
		t.Fatalf("BuildContract() error = %v", err)
	}
	if req.Entities[EntityStartTime] != "20:00" {
		t.Errorf("start_time = %q, want bare 20:00 without a date", req.Entities[EntityStartTime])
	}
	if _, ok := req.Entities[EntityEndTime]; ok {
		t.Error("end_time should be absent without a date")
	}
	if req.Entities[EntityReminderTime] != "20:00" {
		t.Errorf("reminder_time = %q, want 20:00", req.Entities[EntityReminderTime])
	}
	if req.Entities[EntityContent] != "帶課本" {
		t.Errorf("content = %q, want 帶課本", req.Entities[EntityContent])
	}
}

func TestBuildContract_AbsentSlotsStayAbsent(t *testing.T) {
	t.Parallel()
	slots := nlu.SlotSet{nlu.SlotScope: "本週"}

	req, err := BuildContract(nlu.IntentQuerySchedule, "user-1", slots, testNow)
	if err != nil {
		t.Fatalf("BuildContract() error = %v", err)
	}
	if len(req.Entities) != 1 || req.Entities[EntityScope] != "本週" {
		t.Errorf("entities = %v, want only scope=本週", req.Entities)
	}
}

func TestBuildContract_InvalidValues(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		slots nlu.SlotSet
	}{
		{"bad time", nlu.SlotSet{nlu.SlotScheduleTime: "25:00", nlu.SlotCourseDate: "2026-03-04"}},
		{"bad date", nlu.SlotSet{nlu.SlotCourseDate: "2026-13-40"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := BuildContract(nlu.IntentAddCourse, "user-1", tt.slots, testNow); err == nil {
				t.Errorf("BuildContract(%v) = nil error, want validation failure", tt.slots)
			}
		})
	}
}

func TestBuildContract_FalseRecurringOmitted(t *testing.T) {
	t.Parallel()
	slots := nlu.SlotSet{
		nlu.SlotCourseName: "數學課",
		nlu.SlotRecurring:  "false",
	}
	req, err := BuildContract(nlu.IntentAddCourse, "user-1", slots, testNow)
	if err != nil {
		t.Fatalf("BuildContract() error = %v", err)
	}
	if _, ok := req.Entities[EntityRecurrence]; ok {
		t.Error("recurrence should be absent when recurring is false")
	}
}
