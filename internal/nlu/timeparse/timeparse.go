// Package timeparse converts natural-language time and date fragments
// (Chinese numerals, half-hour markers, AM/PM period words, 24h/12h numerals)
// into normalized clock and calendar values.
//
// Patterns are tried in an explicit precedence order: period-qualified
// expressions before bare numerals, so "下午三點" resolves the period
// qualifier instead of stopping at a bare "3".
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// periodClass matches the supported period-of-day qualifier words.
const periodClass = `(凌晨|半夜|清晨|早晨|早上|上午|中午|下午|午後|傍晚|晚間|晚上|夜間|夜裡|深夜)`

// cnNum matches a Chinese clock numeral (e.g. 三, 十, 十二, 二十四, 兩).
const cnNum = `([零一二兩两三四五六七八九十]+)`

// periodRange maps a period word to its canonical 24-hour range.
// A 12-hour numeral outside the range is reconciled by adding 12,
// or by converting 12 to 0 when the range starts at midnight.
type periodRange struct {
	min, max int
}

var periodRanges = map[string]periodRange{
	"凌晨": {0, 5},
	"半夜": {0, 4},
	"清晨": {4, 8},
	"早晨": {5, 11},
	"早上": {5, 11},
	"上午": {0, 11},
	"中午": {11, 13},
	"下午": {12, 19},
	"午後": {12, 19},
	"傍晚": {16, 19},
	"晚間": {17, 23},
	"晚上": {17, 23},
	"夜間": {18, 23},
	"夜裡": {18, 23},
	"深夜": {21, 23},
	"am":  {0, 11},
	"pm":  {12, 23},
}

// resolvePeriodHour reconciles a raw 12-hour numeral against a period range.
// Returns false only when the hour is not a valid clock value at all.
func resolvePeriodHour(hour int, r periodRange) (int, bool) {
	if hour >= r.min && hour <= r.max {
		return hour, true
	}
	if hour >= 1 && hour <= 11 {
		if h := hour + 12; h >= r.min && h <= r.max {
			return h, true
		}
	}
	if hour == 12 && r.min == 0 {
		return 0, true
	}
	// Period word and numeral disagree (e.g. 深夜一點); trust the numeral.
	if hour >= 0 && hour < 24 {
		return hour, true
	}
	return 0, false
}

// Clock expression patterns, in precedence order.
var (
	rePeriodChinese = regexp.MustCompile(periodClass + cnNum + `[點点時时](半|` + cnNum + `分|(\d{1,2})分)?`)
	rePeriodColon   = regexp.MustCompile(periodClass + `\s*(\d{1,2})[:：](\d{1,2})`)
	rePeriodArabic  = regexp.MustCompile(periodClass + `\s*(\d{1,2})[點点時时]?(半|(\d{1,2})分)?`)
	reAMPMSuffix    = regexp.MustCompile(`(\d{1,2})(?:[:：](\d{1,2}))?\s*(am|pm)`)
	reAMPMPrefix    = regexp.MustCompile(`(am|pm)\s*(\d{1,2})(?:[:：](\d{1,2}))?`)
	reColon24       = regexp.MustCompile(`(\d{1,2})[:：](\d{1,2})`)
	reBareArabic    = regexp.MustCompile(`(\d{1,2})[點点時时](半|(\d{1,2})分)?`)
	reBareChinese   = regexp.MustCompile(cnNum + `[點点時时](半|` + cnNum + `分|(\d{1,2})分)?`)
)

// Options tunes parser behavior.
type Options struct {
	// DefaultPeriod is applied to a bare 12-hour numeral with no qualifying
	// period word (e.g. "改成6點"). Empty means take the numeral as-is.
	// Valid values are keys of the period table, typically "下午".
	DefaultPeriod string
}

// Parser converts time/date fragments into normalized values.
// The zero value uses no bare-hour default.
type Parser struct {
	defaultPeriod string
}

// New creates a parser with the given options.
func New(opts Options) *Parser {
	return &Parser{defaultPeriod: opts.DefaultPeriod}
}

// normalize folds fullwidth digits/letters to halfwidth and lowercases
// AM/PM markers so a single pattern set covers both script variants.
func normalize(text string) string {
	return strings.ToLower(width.Fold.String(text))
}

// ParseClock extracts the first time-of-day expression from text and returns
// it in strict "HH:MM" form. Returns false on no match or out-of-range values;
// it never fails loudly on malformed input.
func (p *Parser) ParseClock(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	s := normalize(text)

	if m := rePeriodChinese.FindStringSubmatch(s); m != nil {
		hour, ok := ChineseNumeral(m[2])
		if ok {
			minute, mok := parseMinuteSuffix(m[3], m[4], m[5])
			if mok {
				if h, rok := resolvePeriodHour(hour, periodRanges[m[1]]); rok {
					return formatClock(h, minute)
				}
			}
		}
	}

	if m := rePeriodColon.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[2])
		minute, _ := strconv.Atoi(m[3])
		if minute < 60 {
			if h, ok := resolvePeriodHour(hour, periodRanges[m[1]]); ok {
				return formatClock(h, minute)
			}
		}
	}

	if m := rePeriodArabic.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[2])
		minute, mok := parseMinuteSuffix(m[3], "", m[4])
		if mok {
			if h, ok := resolvePeriodHour(hour, periodRanges[m[1]]); ok {
				return formatClock(h, minute)
			}
		}
	}

	if m := reAMPMSuffix.FindStringSubmatch(s); m != nil {
		return clockFromAMPM(m[1], m[2], m[3])
	}
	if m := reAMPMPrefix.FindStringSubmatch(s); m != nil {
		return clockFromAMPM(m[2], m[3], m[1])
	}

	if m := reColon24.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return formatClock(hour, minute)
	}

	if m := reBareArabic.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, mok := parseMinuteSuffix(m[2], "", m[3])
		if mok {
			return formatClock(p.applyDefaultPeriod(hour), minute)
		}
	}

	if m := reBareChinese.FindStringSubmatch(s); m != nil {
		hour, ok := ChineseNumeral(m[1])
		if ok {
			minute, mok := parseMinuteSuffix(m[2], m[3], m[4])
			if mok {
				return formatClock(p.applyDefaultPeriod(hour), minute)
			}
		}
	}

	return "", false
}

// applyDefaultPeriod shifts a bare 12-hour numeral into the configured
// default period, if any. 24-hour numerals pass through untouched.
func (p *Parser) applyDefaultPeriod(hour int) int {
	if p == nil || p.defaultPeriod == "" {
		return hour
	}
	r, ok := periodRanges[p.defaultPeriod]
	if !ok {
		return hour
	}
	if hour >= 1 && hour <= 11 {
		if h, rok := resolvePeriodHour(hour, r); rok {
			return h
		}
	}
	return hour
}

// parseMinuteSuffix decodes the trailing minute group of a clock pattern.
// suffix is the whole capture ("半", "X分" or empty), cn/ar the inner
// numeral captures where the pattern provides them.
func parseMinuteSuffix(suffix, cn, ar string) (int, bool) {
	switch {
	case suffix == "":
		return 0, true
	case suffix == "半":
		return 30, true
	case cn != "":
		v, ok := ChineseNumeral(cn)
		if !ok || v >= 60 {
			return 0, false
		}
		return v, true
	case ar != "":
		v, err := strconv.Atoi(ar)
		if err != nil || v >= 60 {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func clockFromAMPM(hourStr, minuteStr, marker string) (string, bool) {
	hour, _ := strconv.Atoi(hourStr)
	minute := 0
	if minuteStr != "" {
		minute, _ = strconv.Atoi(minuteStr)
	}
	if hour < 1 || hour > 12 || minute >= 60 {
		return "", false
	}
	if marker == "pm" && hour != 12 {
		hour += 12
	}
	if marker == "am" && hour == 12 {
		hour = 0
	}
	return formatClock(hour, minute)
}

func formatClock(hour, minute int) (string, bool) {
	if hour < 0 || hour >= 24 || minute < 0 || minute >= 60 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// ContainsClock reports whether text contains any recognizable time-of-day
// expression. Used by supplement matching to decide if an utterance is a
// plausible time answer.
func (p *Parser) ContainsClock(text string) bool {
	_, ok := p.ParseClock(text)
	return ok
}
