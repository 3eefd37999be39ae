// Package schedule is the in-process task executor. It keeps each user's
// course book in memory and services the execution contract: scheduling,
// querying, cancelling and modifying courses, reminders and lesson notes.
// Domain checks (course existence, time conflicts) live here, not in the
// dialogue core.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
	"github.com/weilintsai/tutorbot-go/internal/task"
)

// Course is one scheduled lesson, either a dated one-off or a recurring
// weekday slot.
type Course struct {
	Student    string
	Name       string
	Date       string // YYYY-MM-DD, empty for recurring courses
	DayOfWeek  string // canonical 週X token for recurring courses
	Start      string // HH:MM
	End        string // HH:MM
	Recurrence string // "", "weekly" or "daily"
	Notes      []string
}

// Reminder is a one-shot reminder entry.
type Reminder struct {
	Time    string
	Content string
	Student string
}

// Book holds every user's courses and reminders.
type Book struct {
	mu        sync.RWMutex
	courses   map[string][]*Course
	reminders map[string][]Reminder
	log       *logger.Logger
}

// NewBook creates an empty course book.
func NewBook(log *logger.Logger) *Book {
	return &Book{
		courses:   make(map[string][]*Course),
		reminders: make(map[string][]Reminder),
		log:       log.WithModule("schedule"),
	}
}

// Execute services one execution contract call. A nil error with
// Success=false is a domain refusal (conflict, not found); errors are
// reserved for malformed contracts.
func (b *Book) Execute(_ context.Context, req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	switch req.Intent {
	case "add_course":
		return b.addCourse(req)
	case "query_schedule":
		return b.querySchedule(req)
	case "cancel_course":
		return b.cancelCourse(req)
	case "modify_course":
		return b.modifyCourse(req)
	case "set_reminder":
		return b.setReminder(req)
	case "record_content":
		return b.recordContent(req)
	default:
		return nil, fmt.Errorf("unsupported intent %q", req.Intent)
	}
}

func (b *Book) addCourse(req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	e := req.Entities
	course := &Course{
		Student:    e[task.EntityStudentName],
		Name:       e[task.EntityCourseName],
		Date:       e[task.EntityDate],
		DayOfWeek:  e[task.EntityDayOfWeek],
		Recurrence: e[task.EntityRecurrence],
	}
	course.Start, course.End = contractTimes(e)
	if course.Student == "" || course.Name == "" {
		return nil, fmt.Errorf("add_course contract missing student or course")
	}

	// Recurring courses live on a weekday, not on the first resolved date;
	// keeping the date would make next week's same slot look different.
	if course.Recurrence != "" {
		if course.DayOfWeek == "" && course.Date != "" && course.Recurrence == "weekly" {
			course.DayOfWeek = weekdayToken(course.Date)
		}
		course.Date = ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.courses[req.UserID] {
		if existing.Student == course.Student && sameSlot(existing, course) && overlaps(existing, course) {
			return &task.ExecutionResult{
				Success: false,
				Message: fmt.Sprintf("%s在%s已經有%s了，要換個時間嗎？",
					course.Student, slotLabel(course), existing.Name),
			}, nil
		}
	}
	b.courses[req.UserID] = append(b.courses[req.UserID], course)

	b.log.WithField("user_id", req.UserID).
		WithField("student", course.Student).
		WithField("course", course.Name).
		Info("Course added")
	return &task.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("好的，已幫%s排好%s%s", course.Student, slotLabel(course), course.Name),
	}, nil
}

func (b *Book) querySchedule(req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	e := req.Entities

	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []*Course
	for _, c := range b.courses[req.UserID] {
		if s := e[task.EntityStudentName]; s != "" && c.Student != s {
			continue
		}
		if n := e[task.EntityCourseName]; n != "" && c.Name != n {
			continue
		}
		if d := e[task.EntityDate]; d != "" && !occursOn(c, d) {
			continue
		}
		if w := e[task.EntityDayOfWeek]; w != "" && c.DayOfWeek != w {
			continue
		}
		if scope := e[task.EntityScope]; scope != "" && !inScope(c, scope, time.Now()) {
			continue
		}
		matched = append(matched, c)
	}

	if len(matched) == 0 {
		return &task.ExecutionResult{Success: true, Message: "這個範圍內沒有排課喔"}, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date < matched[j].Date
		}
		return matched[i].Start < matched[j].Start
	})

	var sb strings.Builder
	sb.WriteString("找到這些課：")
	for _, c := range matched {
		sb.WriteString("\n・")
		sb.WriteString(c.Student)
		sb.WriteString(" ")
		sb.WriteString(c.Name)
		if label := slotLabel(c); label != "" {
			sb.WriteString("（")
			sb.WriteString(label)
			sb.WriteString("）")
		}
	}
	return &task.ExecutionResult{Success: true, Message: sb.String()}, nil
}

func (b *Book) cancelCourse(req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	e := req.Entities
	student := e[task.EntityStudentName]
	name := e[task.EntityCourseName]

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.courses[req.UserID]
	for i, c := range list {
		if c.Student != student || c.Name != name {
			continue
		}
		if d := e[task.EntityDate]; d != "" && !occursOn(c, d) {
			continue
		}
		b.courses[req.UserID] = append(list[:i], list[i+1:]...)
		return &task.ExecutionResult{
			Success: true,
			Message: fmt.Sprintf("已取消%s的%s", student, name),
		}, nil
	}
	return &task.ExecutionResult{
		Success: false,
		Message: fmt.Sprintf("找不到%s的%s，要不要查一下課表？", student, name),
	}, nil
}

func (b *Book) modifyCourse(req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	e := req.Entities
	student := e[task.EntityStudentName]
	name := e[task.EntityCourseName]

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.courses[req.UserID] {
		if c.Student != student || c.Name != name {
			continue
		}
		if start, end := contractTimes(e); start != "" {
			c.Start, c.End = start, end
		}
		if d := e[task.EntityDate]; d != "" {
			c.Date = d
			c.DayOfWeek = ""
		}
		if w := e[task.EntityDayOfWeek]; w != "" && e[task.EntityDate] == "" {
			c.DayOfWeek = w
			c.Date = ""
		}
		return &task.ExecutionResult{
			Success: true,
			Message: fmt.Sprintf("好的，%s的%s改到%s", student, name, slotLabel(c)),
		}, nil
	}
	return &task.ExecutionResult{
		Success: false,
		Message: fmt.Sprintf("找不到%s的%s，要先幫他排課嗎？", student, name),
	}, nil
}

func (b *Book) setReminder(req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	e := req.Entities
	reminder := Reminder{
		Time:    e[task.EntityReminderTime],
		Content: e[task.EntityContent],
		Student: e[task.EntityStudentName],
	}
	if reminder.Time == "" || reminder.Content == "" {
		return nil, fmt.Errorf("set_reminder contract missing time or content")
	}

	b.mu.Lock()
	b.reminders[req.UserID] = append(b.reminders[req.UserID], reminder)
	b.mu.Unlock()

	return &task.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("好的，會在%s提醒你：%s", reminder.Time, reminder.Content),
	}, nil
}

func (b *Book) recordContent(req *task.ExecutionRequest) (*task.ExecutionResult, error) {
	e := req.Entities
	student := e[task.EntityStudentName]
	name := e[task.EntityCourseName]
	content := e[task.EntityContent]
	if content == "" {
		return nil, fmt.Errorf("record_content contract missing content")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.courses[req.UserID] {
		if c.Student == student && c.Name == name {
			c.Notes = append(c.Notes, content)
			return &task.ExecutionResult{
				Success: true,
				Message: fmt.Sprintf("已記錄%s的%s：%s", student, name, content),
			}, nil
		}
	}
	return &task.ExecutionResult{
		Success: false,
		Message: fmt.Sprintf("還沒有%s的%s，要先幫他排課嗎？", student, name),
	}, nil
}

// Courses returns a copy of one user's course list, for inspection.
func (b *Book) Courses(userID string) []Course {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Course, 0, len(b.courses[userID]))
	for _, c := range b.courses[userID] {
		out = append(out, *c)
	}
	return out
}

// contractTimes extracts HH:MM start/end from the contract, which carries
// either a composed RFC3339 pair or a bare clock.
func contractTimes(e map[string]string) (start, end string) {
	start = clockOf(e[task.EntityStartTime])
	end = clockOf(e[task.EntityEndTime])
	return start, end
}

func clockOf(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("15:04")
	}
	if timeparse.ValidClock(s) {
		return s
	}
	return ""
}

// sameSlot reports whether two courses occupy the same day: equal dates,
// equal recurring weekdays, or a dated course falling on a recurring one.
func sameSlot(a, c *Course) bool {
	if a.Date != "" && c.Date != "" {
		return a.Date == c.Date
	}
	if a.DayOfWeek != "" && c.DayOfWeek != "" {
		return a.DayOfWeek == c.DayOfWeek
	}
	dated, recurring := a, c
	if c.Date != "" {
		dated, recurring = c, a
	}
	if dated.Date == "" || recurring.DayOfWeek == "" {
		return false
	}
	return weekdayToken(dated.Date) == recurring.DayOfWeek
}

// overlaps reports whether two courses' time ranges intersect. Courses
// without times on the same slot always conflict; a missing end assumes
// the default lesson duration. Back-to-back courses do not conflict.
func overlaps(a, c *Course) bool {
	if a.Start == "" || c.Start == "" {
		return true
	}
	return a.Start < endOf(c) && c.Start < endOf(a)
}

// endOf returns the course end clock, assuming the default lesson duration
// when the utterance only named a start time.
func endOf(c *Course) string {
	if c.End != "" {
		return c.End
	}
	t, err := time.Parse("15:04", c.Start)
	if err != nil {
		return c.Start
	}
	end := t.Add(task.DefaultLessonDuration)
	if end.Day() != t.Day() {
		return "23:59"
	}
	return end.Format("15:04")
}

// occursOn reports whether a course happens on a concrete date.
func occursOn(c *Course, date string) bool {
	if c.Date != "" {
		return c.Date == date
	}
	if c.Recurrence == "daily" {
		return true
	}
	if c.DayOfWeek != "" {
		return weekdayToken(date) == c.DayOfWeek
	}
	return false
}

// inScope filters by the query scope keyword.
func inScope(c *Course, scope string, now time.Time) bool {
	today := now.Format("2006-01-02")
	switch scope {
	case "今天":
		return occursOn(c, today)
	case "本週", "這週":
		return inWeek(c, now)
	case "下週":
		return inWeek(c, now.AddDate(0, 0, 7))
	case "全部":
		return true
	default:
		return true
	}
}

// inWeek reports whether a course occurs during the Monday-based week of t.
func inWeek(c *Course, t time.Time) bool {
	if c.DayOfWeek != "" || c.Recurrence == "daily" {
		return true
	}
	if c.Date == "" {
		return false
	}
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset).Format("2006-01-02")
	sunday := t.AddDate(0, 0, 6-offset).Format("2006-01-02")
	return c.Date >= monday && c.Date <= sunday
}

var weekdayTokens = [7]string{"週日", "週一", "週二", "週三", "週四", "週五", "週六"}

func weekdayToken(date string) string {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return ""
	}
	return weekdayTokens[int(t.Weekday())]
}

// slotLabel renders a course's slot for replies: date or weekday plus time.
func slotLabel(c *Course) string {
	var parts []string
	switch {
	case c.Recurrence == "daily":
		parts = append(parts, "每天")
	case c.Date != "":
		parts = append(parts, c.Date)
	case c.DayOfWeek != "":
		if c.Recurrence == "weekly" {
			parts = append(parts, "每"+c.DayOfWeek)
		} else {
			parts = append(parts, c.DayOfWeek)
		}
	}
	if c.Start != "" {
		parts = append(parts, c.Start)
	}
	return strings.Join(parts, " ")
}
