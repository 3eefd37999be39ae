package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the strict wire format for calendar dates.
const DateLayout = "2006-01-02"

// Relative day words, longest first so 大後天 is not consumed as 後天.
var relativeDays = []struct {
	word   string
	offset int
}{
	{"大後天", 3},
	{"大后天", 3},
	{"後天", 2},
	{"后天", 2},
	{"明天", 1},
	{"明日", 1},
	{"今天", 0},
	{"今日", 0},
	{"昨天", -1},
}

var (
	reDateFull    = regexp.MustCompile(`(\d{4})[-/年](\d{1,2})[-/月](\d{1,2})[日號号]?`)
	reDateMonth   = regexp.MustCompile(`(\d{1,2})[月/](\d{1,2})[日號号]?`)
	reDateChinese = regexp.MustCompile(`([一二三四五六七八九十]+)月([一二三四五六七八九十]+)[日號号]`)
	reWeekday     = regexp.MustCompile(`(下下|下|這|这|本)?(週|周|星期|禮拜|礼拜)([一二三四五六日天])`)
)

var weekdayRunes = map[rune]time.Weekday{
	'一': time.Monday,
	'二': time.Tuesday,
	'三': time.Wednesday,
	'四': time.Thursday,
	'五': time.Friday,
	'六': time.Saturday,
	'日': time.Sunday,
	'天': time.Sunday,
}

var weekdayTokens = map[time.Weekday]string{
	time.Monday:    "週一",
	time.Tuesday:   "週二",
	time.Wednesday: "週三",
	time.Thursday:  "週四",
	time.Friday:    "週五",
	time.Saturday:  "週六",
	time.Sunday:    "週日",
}

// ParseDate extracts the first calendar date expression from text, resolved
// against now, in strict "YYYY-MM-DD" form. Handles relative day words
// (今天/明天/後天/大後天/昨天), full dates (2026-09-01, 2026/9/1, 2026年9月1日),
// month-day forms (9月1日, 9/1) and Chinese-numeral month-day (九月一日).
// Returns false when nothing matches or the date does not exist.
func (p *Parser) ParseDate(text string, now time.Time) (string, bool) {
	if text == "" {
		return "", false
	}
	s := normalize(text)

	for _, rd := range relativeDays {
		if strings.Contains(s, rd.word) {
			return now.AddDate(0, 0, rd.offset).Format(DateLayout), true
		}
	}

	if m := reDateFull.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return formatDate(year, month, day)
	}

	if m := reDateMonth.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return formatDate(now.Year(), month, day)
	}

	if m := reDateChinese.FindStringSubmatch(s); m != nil {
		month, mok := ChineseNumeral(m[1])
		day, dok := ChineseNumeral(m[2])
		if mok && dok {
			return formatDate(now.Year(), month, day)
		}
	}

	return "", false
}

// ParseWeekday extracts the first weekday expression from text. Returns the
// canonical token (週一..週日) and a week offset: 0 for this week (or an
// unqualified weekday), 1 for 下週X, 2 for 下下週X.
func (p *Parser) ParseWeekday(text string) (token string, weekOffset int, ok bool) {
	if text == "" {
		return "", 0, false
	}
	m := reWeekday.FindStringSubmatch(normalize(text))
	if m == nil {
		return "", 0, false
	}
	wd, found := weekdayRunes[[]rune(m[3])[0]]
	if !found {
		return "", 0, false
	}
	switch m[1] {
	case "下":
		weekOffset = 1
	case "下下":
		weekOffset = 2
	}
	return weekdayTokens[wd], weekOffset, true
}

// WeekdayToDate resolves a canonical weekday token plus week offset to a
// concrete date at or after now. An unqualified weekday earlier in the
// current week rolls forward to next week.
func WeekdayToDate(token string, weekOffset int, now time.Time) (string, bool) {
	var target time.Weekday
	found := false
	for wd, tok := range weekdayTokens {
		if tok == token {
			target = wd
			found = true
			break
		}
	}
	if !found {
		return "", false
	}

	// Today counts as this week's occurrence; an earlier weekday rolls
	// forward to the next one.
	days := (int(target) - int(now.Weekday()) + 7) % 7
	days += weekOffset * 7
	return now.AddDate(0, 0, days).Format(DateLayout), true
}

// ValidDate reports whether s is a strict YYYY-MM-DD date that exists on the
// calendar. Used as the final gate before a date slot may propagate.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	return t.Format(DateLayout) == s
}

// ValidClock reports whether s is a strict HH:MM clock value.
func ValidClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hour, err1 := strconv.Atoi(s[:2])
	minute, err2 := strconv.Atoi(s[3:])
	return err1 == nil && err2 == nil && hour >= 0 && hour < 24 && minute >= 0 && minute < 60
}

func formatDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Round-trip rejects dates like 2月30日 that normalize elsewhere.
	if int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
