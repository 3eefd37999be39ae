package nlu

import (
	"fmt"
	"regexp"
	"strings"
)

// Quality-defect detectors for extracted name values.
var (
	digitsInName    = regexp.MustCompile(`\d`)
	actionVerbInVal = regexp.MustCompile(`(新增|取消|查詢|查询|修改|刪除|删除|安排|預約|预约|提醒|記錄|记录|排課|排课)`)
)

// scoreConfidence computes the fill-rate over the intent's expected fields,
// penalized for fields with quality defects. Result is clamped to [0,1].
func scoreConfidence(intent Intent, slots SlotSet) (float64, []string) {
	expected := ExpectedFields(intent)
	if len(expected) == 0 {
		// Intents without an expected-field table (confirm, supplements)
		// carry no extraction uncertainty.
		return 1.0, nil
	}

	var issues []string
	filled := 0
	penalty := 0.0
	for _, key := range expected {
		value, ok := slots.Get(key)
		if !ok {
			continue
		}
		filled++
		for _, issue := range fieldDefects(key, value) {
			issues = append(issues, issue)
			penalty += 0.1
		}
	}

	confidence := float64(filled)/float64(len(expected)) - penalty
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence, issues
}

// fieldDefects lists quality problems of a single filled field.
func fieldDefects(key SlotKey, value string) []string {
	var issues []string
	runeLen := len([]rune(value))

	switch key {
	case SlotStudentName:
		if runeLen < 2 {
			issues = append(issues, fmt.Sprintf("%s_too_short", key))
		}
		if runeLen > 4 {
			issues = append(issues, fmt.Sprintf("%s_too_long", key))
		}
		if digitsInName.MatchString(value) {
			issues = append(issues, fmt.Sprintf("%s_contains_digits", key))
		}
		if actionVerbInVal.MatchString(value) {
			issues = append(issues, fmt.Sprintf("%s_contains_action_verb", key))
		}
	case SlotCourseName:
		if runeLen < 2 {
			issues = append(issues, fmt.Sprintf("%s_too_short", key))
		}
		if runeLen > 12 {
			issues = append(issues, fmt.Sprintf("%s_too_long", key))
		}
		if actionVerbInVal.MatchString(value) {
			issues = append(issues, fmt.Sprintf("%s_contains_action_verb", key))
		}
	case SlotContent:
		if strings.TrimSpace(value) == "" {
			issues = append(issues, fmt.Sprintf("%s_blank", key))
		}
	}
	return issues
}
