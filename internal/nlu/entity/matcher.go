package entity

import (
	"regexp"
	"strings"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
)

// Matcher extracts structured entity candidates from utterances.
// It delegates time/date sub-fields to the timeparse package.
type Matcher struct {
	parser *timeparse.Parser
}

// NewMatcher creates a matcher backed by the given time parser.
func NewMatcher(parser *timeparse.Parser) *Matcher {
	return &Matcher{parser: parser}
}

// StudentName extracts the single best student-name candidate.
// Returns false when no rule yields a candidate that survives the deny-list.
func (m *Matcher) StudentName(text string) (string, bool) {
	names := m.StudentNames(text)
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// StudentNames extracts every plausible student-name candidate in rule
// precedence order. Ambiguous utterances with several names populate the
// whole list so the caller can ask for clarification instead of guessing.
func (m *Matcher) StudentNames(text string) []string {
	return m.extractAll(text, studentRules, cleanStudentCandidate)
}

// CourseName extracts the single best course-name candidate, normalized to
// carry a course suffix unless it is itself a category word.
func (m *Matcher) CourseName(text string) (string, bool) {
	names := m.CourseNames(text)
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// CourseNames extracts every plausible course-name candidate. The suffix
// scanner runs first (highest precision), then the regex rules.
func (m *Matcher) CourseNames(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(candidate string) {
		if candidate == "" || isDenied(candidate) {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	for _, c := range courseStemsBySuffix(text) {
		add(c)
	}
	for _, c := range m.extractAll(text, courseRules, cleanCourseCandidate) {
		add(c)
	}
	return out
}

// courseStemsBySuffix finds 課/课/班 suffix positions and walks each stem
// backwards, stopping at particles, arrangement verbs and time fragments.
func courseStemsBySuffix(text string) []string {
	runes := []rune(text)
	var out []string
	for i, r := range runes {
		if r != '課' && r != '课' && r != '班' {
			continue
		}
		// 課程/課表/課堂 are generic nouns, not course names.
		if i+1 < len(runes) {
			if _, generic := courseSuffixFollowers[runes[i+1]]; generic {
				continue
			}
		}

		var stem []rune
		for j := i - 1; j >= 0 && len(stem) < 8; j-- {
			c := runes[j]
			if _, stop := courseStemStops[c]; stop {
				break
			}
			if !isNameRune(c) {
				break
			}
			stem = append([]rune{c}, stem...)
		}
		if len(stem) > 0 {
			out = append(out, string(stem)+string(r))
		}
	}
	return out
}

func isNameRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	}
	return false
}

// ScheduleTime extracts a normalized HH:MM time from the utterance.
func (m *Matcher) ScheduleTime(text string) (string, bool) {
	return m.parser.ParseClock(text)
}

// CourseDate extracts a normalized YYYY-MM-DD date from the utterance.
func (m *Matcher) CourseDate(text string, now time.Time) (string, bool) {
	return m.parser.ParseDate(text, now)
}

// DayOfWeek extracts a canonical weekday token (週一..週日) and week offset.
func (m *Matcher) DayOfWeek(text string) (string, int, bool) {
	return m.parser.ParseWeekday(text)
}

// extractAll runs the rule list in order, collecting deduplicated candidates
// that survive cleanup and the deny-list.
func (m *Matcher) extractAll(text string, rules []rule, clean func(candidate, following string) []string) []string {
	if text == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	for _, r := range rules {
		for _, loc := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*r.group], loc[2*r.group+1]
			if start < 0 || end < 0 {
				continue
			}
			for _, candidate := range clean(text[start:end], text[end:]) {
				if candidate == "" || isDenied(candidate) {
					continue
				}
				if _, dup := seen[candidate]; dup {
					continue
				}
				seen[candidate] = struct{}{}
				out = append(out, candidate)
			}
		}
	}
	return out
}

// nameConjunctions split a capture holding several names ("小明和小華").
var nameConjunctions = regexp.MustCompile(`[和跟與与、,，]`)

// cleanStudentCandidate trims accidentally captured week fragments, splits
// conjunction chains into separate candidates and enforces a plausible
// Chinese name length.
func cleanStudentCandidate(candidate, following string) []string {
	candidate = strings.TrimSpace(candidate)
	candidate = leadingVerbs.ReplaceAllString(candidate, "")
	candidate = leadingParticles.ReplaceAllString(candidate, "")
	candidate = trailingWeekTokens.ReplaceAllString(candidate, "")
	if partialWeekHeads.MatchString(candidate) && weekContinuations.MatchString(following) {
		candidate = partialWeekHeads.ReplaceAllString(candidate, "")
	}

	var out []string
	for _, part := range nameConjunctions.Split(candidate, -1) {
		if n := len([]rune(part)); n >= 2 && n <= 4 && !hasNameStopRune(part) {
			out = append(out, part)
		}
	}
	return out
}

func hasNameStopRune(s string) bool {
	for _, r := range s {
		if _, stop := nameStopRunes[r]; stop {
			return true
		}
	}
	return false
}

// cleanCourseCandidate trims week fragments and appends the canonical 課
// suffix when the candidate carries neither a suffix nor a category word.
func cleanCourseCandidate(candidate, following string) []string {
	candidate = strings.TrimSpace(candidate)
	candidate = trailingWeekTokens.ReplaceAllString(candidate, "")
	if partialWeekHeads.MatchString(candidate) && weekContinuations.MatchString(following) {
		candidate = partialWeekHeads.ReplaceAllString(candidate, "")
	}
	// Keep only the segment after a possessive particle.
	if idx := strings.LastIndex(candidate, "的"); idx >= 0 {
		candidate = candidate[idx+len("的"):]
	}

	n := len([]rune(candidate))
	if n < 2 || n > 12 {
		return nil
	}

	for _, suffix := range courseSuffixes {
		if strings.HasSuffix(candidate, suffix) {
			return []string{candidate}
		}
	}
	for _, cat := range courseCategoryWords {
		if strings.Contains(candidate, cat) {
			return []string{candidate}
		}
	}
	return []string{candidate + "課"}
}

// bareNamePattern matches an utterance that is nothing but a short Chinese
// name, the shape of a supplement answer to a "which student?" prompt.
var bareNamePattern = regexp.MustCompile(`^\p{Han}{2,4}$`)

// LooksLikeBareName reports whether the whole utterance is a plausible bare
// student name (2-4 Han runes, not deny-listed).
func LooksLikeBareName(text string) bool {
	text = strings.TrimSpace(text)
	return bareNamePattern.MatchString(text) && !isDenied(text) && !hasNameStopRune(text)
}

// isDenied reports whether the candidate equals or contains a deny-listed
// token (time references, action verbs, generic nouns).
func isDenied(candidate string) bool {
	for _, w := range denyWords {
		if strings.Contains(candidate, w) {
			return true
		}
	}
	return false
}
