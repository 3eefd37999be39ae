// Package task converts completed slot sets into the execution contract,
// invokes the external task executor and keeps the conversation state
// consistent with the outcome.
package task

import (
	"fmt"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/nlu"
	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
)

// ExecutionRequest is the input contract of the external task executor.
// Entities carry renamed, composed forms of the extracted slots.
type ExecutionRequest struct {
	Intent   string
	UserID   string
	Entities map[string]string
}

// Entity keys of the execution contract.
const (
	EntityStudentName  = "student_name"
	EntityCourseName   = "course_name"
	EntityStartTime    = "start_time"
	EntityEndTime      = "end_time"
	EntityDate         = "date"
	EntityDayOfWeek    = "day_of_week"
	EntityRecurrence   = "recurrence"
	EntityReminderTime = "reminder_time"
	EntityContent      = "content"
	EntityScope        = "scope"
)

// DefaultLessonDuration fills the end timestamp when the utterance only
// names a start time.
const DefaultLessonDuration = time.Hour

// BuildContract converts a slot set into the execution contract: field
// renames, a composed start/end timestamp pair from date+time, and a
// recurrence descriptor. Slots absent from the set are absent from the
// contract.
func BuildContract(intent nlu.Intent, userID string, slots nlu.SlotSet, now time.Time) (*ExecutionRequest, error) {
	entities := make(map[string]string)

	copySlot := func(key nlu.SlotKey, entity string) {
		if v, ok := slots.Get(key); ok {
			entities[entity] = v
		}
	}
	copySlot(nlu.SlotStudentName, EntityStudentName)
	copySlot(nlu.SlotCourseName, EntityCourseName)
	copySlot(nlu.SlotDayOfWeek, EntityDayOfWeek)
	copySlot(nlu.SlotReminderTime, EntityReminderTime)
	copySlot(nlu.SlotContent, EntityContent)
	copySlot(nlu.SlotScope, EntityScope)

	date, hasDate := slots.Get(nlu.SlotCourseDate)
	if !hasDate {
		// A bare weekday still yields a concrete date.
		if day, ok := slots.Get(nlu.SlotDayOfWeek); ok {
			if resolved, ok := timeparse.WeekdayToDate(day, 0, now); ok {
				date = resolved
				hasDate = true
			}
		}
	}
	if hasDate {
		if !timeparse.ValidDate(date) {
			return nil, fmt.Errorf("invalid date %q for intent %s", date, intent)
		}
		entities[EntityDate] = date
	}

	if clock, ok := slots.Get(nlu.SlotScheduleTime); ok {
		if !timeparse.ValidClock(clock) {
			return nil, fmt.Errorf("invalid time %q for intent %s", clock, intent)
		}
		if hasDate {
			start, err := composeTimestamp(date, clock)
			if err != nil {
				return nil, err
			}
			entities[EntityStartTime] = start.Format(time.RFC3339)
			entities[EntityEndTime] = start.Add(DefaultLessonDuration).Format(time.RFC3339)
		} else {
			entities[EntityStartTime] = clock
		}
	}

	if recurring, ok := slots.Get(nlu.SlotRecurring); ok && recurring == "true" {
		recurrence := "weekly"
		if t, ok := slots.Get(nlu.SlotRecurrenceType); ok {
			recurrence = t
		}
		entities[EntityRecurrence] = recurrence
	}

	return &ExecutionRequest{
		Intent:   intent.String(),
		UserID:   userID,
		Entities: entities,
	}, nil
}

func composeTimestamp(date, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to compose timestamp from %q %q: %w", date, clock, err)
	}
	return t, nil
}
