package nlu

// expectedFields lists the slots an intent's extraction is measured against.
// The confidence fill-rate denominator and the missing-field computation both
// derive from this table.
var expectedFields = map[Intent][]SlotKey{
	IntentAddCourse:     {SlotStudentName, SlotCourseName, SlotScheduleTime, SlotCourseDate, SlotDayOfWeek},
	IntentQuerySchedule: {SlotStudentName, SlotCourseName, SlotCourseDate, SlotDayOfWeek, SlotScope},
	IntentCancelCourse:  {SlotStudentName, SlotCourseName, SlotCourseDate},
	IntentModifyCourse:  {SlotStudentName, SlotCourseName, SlotScheduleTime, SlotCourseDate, SlotDayOfWeek},
	IntentSetReminder:   {SlotReminderTime, SlotContent, SlotStudentName},
	IntentRecordContent: {SlotStudentName, SlotCourseName, SlotContent},
}

// ExpectedFields returns the expected slot list for an intent.
func ExpectedFields(intent Intent) []SlotKey {
	return expectedFields[intent]
}

// IsComplete evaluates the intent's completion predicate: whether the slot
// set carries enough information to attempt execution.
func IsComplete(intent Intent, slots SlotSet) bool {
	switch intent {
	case IntentAddCourse:
		if !slots.Has(SlotStudentName) || !slots.Has(SlotCourseName) {
			return false
		}
		// Needs at least one scheduling anchor: an explicit clock time, or
		// a concrete day. A date and a weekday are the same anchor class, a
		// date already determines its weekday, so either one suffices.
		return slots.Has(SlotScheduleTime) || slots.Has(SlotCourseDate) || slots.Has(SlotDayOfWeek)
	case IntentQuerySchedule:
		return slots.Has(SlotStudentName) || slots.Has(SlotCourseName) ||
			slots.Has(SlotCourseDate) || slots.Has(SlotDayOfWeek) || slots.Has(SlotScope)
	case IntentCancelCourse:
		return slots.Has(SlotStudentName) && slots.Has(SlotCourseName)
	case IntentModifyCourse:
		if !slots.Has(SlotStudentName) || !slots.Has(SlotCourseName) {
			return false
		}
		return slots.Has(SlotScheduleTime) || slots.Has(SlotCourseDate) || slots.Has(SlotDayOfWeek)
	case IntentSetReminder:
		return slots.Has(SlotReminderTime) && slots.Has(SlotContent)
	case IntentRecordContent:
		return slots.Has(SlotStudentName) && slots.Has(SlotCourseName) && slots.Has(SlotContent)
	case IntentConfirmAction:
		return true
	}
	return false
}

// MissingFields lists the slots still needed before the intent's completion
// predicate can pass, in a stable ask-first order.
func MissingFields(intent Intent, slots SlotSet) []SlotKey {
	var missing []SlotKey
	need := func(key SlotKey) {
		if !slots.Has(key) {
			missing = append(missing, key)
		}
	}

	switch intent {
	case IntentAddCourse:
		need(SlotStudentName)
		need(SlotCourseName)
		if !slots.Has(SlotScheduleTime) && !slots.Has(SlotCourseDate) && !slots.Has(SlotDayOfWeek) {
			missing = append(missing, SlotScheduleTime)
		}
	case IntentQuerySchedule:
		if !IsComplete(intent, slots) {
			missing = append(missing, SlotStudentName)
		}
	case IntentCancelCourse:
		need(SlotStudentName)
		need(SlotCourseName)
	case IntentModifyCourse:
		need(SlotStudentName)
		need(SlotCourseName)
		if !slots.Has(SlotScheduleTime) && !slots.Has(SlotCourseDate) && !slots.Has(SlotDayOfWeek) {
			missing = append(missing, SlotScheduleTime)
		}
	case IntentSetReminder:
		need(SlotReminderTime)
		need(SlotContent)
	case IntentRecordContent:
		need(SlotStudentName)
		need(SlotCourseName)
		need(SlotContent)
	}
	return missing
}
