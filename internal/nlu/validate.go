package nlu

import (
	"regexp"
	"strings"

	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
)

var (
	// leakedVerbEdges strip action verbs stuck to the edges of a name value.
	leakedVerbPrefix = regexp.MustCompile(`^(新增|取消|查詢|查询|修改|安排|預約|预约|記錄|记录|提醒|幫|帮|排|約|约|加)+`)
	leakedVerbSuffix = regexp.MustCompile(`(新增|取消|查詢|查询|修改|安排|預約|预约|記錄|记录|提醒)+$`)

	// questionFragment detects course values that are really question text.
	questionFragment = regexp.MustCompile(`(什麼|什么|哪些|哪個|哪个|幾點|几点|嗎|吗|\?|？)`)

	// possessiveCourse splits a student name absorbed into a course value.
	possessiveCourse = regexp.MustCompile(`^(\p{Han}{2,4})的(.{1,10}[課课班])$`)

	canonicalWeekdays = map[string]struct{}{
		"週一": {}, "週二": {}, "週三": {}, "週四": {}, "週五": {}, "週六": {}, "週日": {},
	}
)

// validateSlots cleans the merged slot set in place and returns the issues
// found: leaked action verbs are stripped from name fields, a student name
// absorbed into the course field is re-homed, question fragments posing as
// course names are dropped, and malformed dates/times are removed rather
// than propagated downstream.
func validateSlots(slots SlotSet) []string {
	var issues []string

	// Re-home "小明的數學課" style course values before edge cleanup.
	if course, ok := slots.Get(SlotCourseName); ok {
		if m := possessiveCourse.FindStringSubmatch(course); m != nil {
			if !slots.Has(SlotStudentName) {
				slots.Set(SlotStudentName, m[1])
			}
			slots[SlotCourseName] = m[2]
			issues = append(issues, "course_contained_student_name")
		}
	}

	for _, key := range []SlotKey{SlotStudentName, SlotCourseName} {
		value, ok := slots.Get(key)
		if !ok {
			continue
		}
		cleaned := leakedVerbPrefix.ReplaceAllString(value, "")
		cleaned = leakedVerbSuffix.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned != value {
			issues = append(issues, string(key)+"_stripped_action_verb")
		}
		if len([]rune(cleaned)) < 2 {
			delete(slots, key)
			continue
		}
		slots[key] = cleaned
	}

	if course, ok := slots.Get(SlotCourseName); ok && questionFragment.MatchString(course) {
		delete(slots, SlotCourseName)
		issues = append(issues, "course_was_question_fragment")
	}

	for _, key := range []SlotKey{SlotCourseDate} {
		if value, ok := slots.Get(key); ok && !timeparse.ValidDate(value) {
			delete(slots, key)
			issues = append(issues, string(key)+"_malformed")
		}
	}
	for _, key := range []SlotKey{SlotScheduleTime, SlotReminderTime} {
		if value, ok := slots.Get(key); ok && !timeparse.ValidClock(value) {
			delete(slots, key)
			issues = append(issues, string(key)+"_malformed")
		}
	}

	if value, ok := slots.Get(SlotDayOfWeek); ok {
		if _, canonical := canonicalWeekdays[value]; !canonical {
			delete(slots, SlotDayOfWeek)
			issues = append(issues, "dayOfWeek_malformed")
		}
	}
	if value, ok := slots.Get(SlotRecurring); ok && value != "true" && value != "false" {
		delete(slots, SlotRecurring)
	}
	if value, ok := slots.Get(SlotRecurrenceType); ok && value != "weekly" && value != "daily" {
		delete(slots, SlotRecurrenceType)
	}

	// Final normalization: drop anything null-like that slipped through a
	// direct map write.
	for key, value := range slots {
		if isNullLike(value) {
			delete(slots, key)
		}
	}

	return issues
}
