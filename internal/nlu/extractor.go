package nlu

import (
	"context"
	"strings"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu/entity"
	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
)

// SlotFiller is the external AI slot-extraction capability. The result is
// merged only into fields the rule pass left empty.
type SlotFiller interface {
	ExtractSlots(ctx context.Context, text string, intent string, existing map[string]string) (map[string]string, error)
}

// ReviewReporter receives low-confidence turns for offline review.
// Implementations must be non-blocking; a reporting failure never fails
// the turn.
type ReviewReporter interface {
	Report(userID, text string, intent string, confidence float64, issues []string)
}

// ExtractorConfig tunes the extraction pipeline.
type ExtractorConfig struct {
	// AIAssist enables AI-backed re-extraction for low-confidence turns.
	AIAssist bool
	// AIAssistThreshold triggers AI assistance below this confidence.
	AIAssistThreshold float64
	// ReviewThreshold logs the turn for offline review below this final
	// confidence.
	ReviewThreshold float64
	// DailyRecurrence enables recognition of 每天 recurrence.
	DailyRecurrence bool
	// ContextInferIntents is the allow-list of intents that may inherit a
	// student from an active query session. Inheritance from mentioned
	// entities is otherwise disabled to avoid false carry-over.
	ContextInferIntents []Intent
}

// Extractor runs the per-intent slot extraction pipeline: rule extraction,
// guarded context enhancement, confidence scoring, AI-assisted completion,
// validation/cleanup and final normalization. Extract never fails; it
// returns a best-effort partial set.
type Extractor struct {
	matcher *entity.Matcher
	parser  *timeparse.Parser
	ai      SlotFiller
	review  ReviewReporter
	cfg     ExtractorConfig
	log     *logger.Logger
}

// NewExtractor creates an extractor. ai and review may be nil, disabling the
// corresponding pipeline stages.
func NewExtractor(matcher *entity.Matcher, parser *timeparse.Parser, ai SlotFiller, review ReviewReporter, cfg ExtractorConfig, log *logger.Logger) *Extractor {
	if cfg.AIAssistThreshold <= 0 {
		cfg.AIAssistThreshold = 0.5
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = 0.5
	}
	if cfg.ContextInferIntents == nil {
		cfg.ContextInferIntents = []Intent{IntentCancelCourse, IntentQuerySchedule}
	}
	return &Extractor{
		matcher: matcher,
		parser:  parser,
		ai:      ai,
		review:  review,
		cfg:     cfg,
		log:     log,
	}
}

// Extract runs the full pipeline for one turn.
func (e *Extractor) Extract(ctx context.Context, text string, intent Intent, userID string, hints ContextHints, now time.Time) ExtractionResult {
	slots, candidates := e.ruleExtract(text, intent, now)

	e.enhanceFromContext(intent, slots, hints)

	confidence, issues := scoreConfidence(intent, slots)

	if e.shouldAssist(intent, slots, confidence) {
		e.aiAssist(ctx, text, intent, slots)
		// Re-score after the merge; AI output may have filled gaps.
		confidence, issues = scoreConfidence(intent, slots)
	}

	cleanIssues := validateSlots(slots)
	issues = append(issues, cleanIssues...)
	for key, names := range candidates {
		if len(names) > 1 {
			issues = append(issues, "ambiguous_"+string(key)+":"+strings.Join(names, ","))
		}
	}

	if confidence < e.cfg.ReviewThreshold && e.review != nil {
		// Fire-and-forget: the reporter owns the non-blocking guarantee.
		e.review.Report(userID, text, intent.String(), confidence, issues)
	}

	return ExtractionResult{Slots: slots, Confidence: confidence, Issues: issues}
}

// RuleOnly runs only the rule-based extraction phase. Used by the classifier
// for complete-in-context re-interpretation, where AI assistance and review
// logging must not fire.
func (e *Extractor) RuleOnly(text string, intent Intent, now time.Time) SlotSet {
	slots, _ := e.ruleExtract(text, intent, now)
	validateSlots(slots)
	return slots
}

// ruleExtract produces raw slots from the pattern layer. Ambiguous matches
// (several plausible student names) populate the candidates map instead of
// silently picking one.
func (e *Extractor) ruleExtract(text string, intent Intent, now time.Time) (SlotSet, map[SlotKey][]string) {
	slots := make(SlotSet)
	candidates := make(map[SlotKey][]string)

	students := e.matcher.StudentNames(text)
	switch len(students) {
	case 0:
	case 1:
		slots.Set(SlotStudentName, students[0])
	default:
		candidates[SlotStudentName] = students
	}

	if course, ok := e.matcher.CourseName(text); ok {
		slots.Set(SlotCourseName, course)
	}

	if clock, ok := e.parser.ParseClock(text); ok {
		if intent == IntentSetReminder {
			slots.Set(SlotReminderTime, clock)
		} else {
			slots.Set(SlotScheduleTime, clock)
		}
	}
	if date, ok := e.parser.ParseDate(text, now); ok {
		slots.Set(SlotCourseDate, date)
	}
	if token, offset, ok := e.parser.ParseWeekday(text); ok {
		slots.Set(SlotDayOfWeek, token)
		if !slots.Has(SlotCourseDate) {
			if date, dok := timeparse.WeekdayToDate(token, offset, now); dok {
				slots.Set(SlotCourseDate, date)
			}
		}
	}

	e.extractRecurrence(text, slots)

	switch intent {
	case IntentQuerySchedule:
		e.extractScope(text, slots)
	case IntentSetReminder, IntentRecordContent:
		if content, ok := extractContent(text, intent); ok {
			slots.Set(SlotContent, content)
		}
	}

	return slots, candidates
}

// recurrence markers; 每天 is honored only when the daily toggle is on.
func (e *Extractor) extractRecurrence(text string, slots SlotSet) {
	switch {
	case strings.Contains(text, "每週") || strings.Contains(text, "每周") || strings.Contains(text, "每星期"):
		slots.Set(SlotRecurring, "true")
		slots.Set(SlotRecurrenceType, "weekly")
	case e.cfg.DailyRecurrence && strings.Contains(text, "每天"):
		slots.Set(SlotRecurring, "true")
		slots.Set(SlotRecurrenceType, "daily")
	}
}

var scopeWords = []string{"今天", "明天", "本週", "本周", "這週", "这周", "下週", "下周", "全部", "所有"}

func (e *Extractor) extractScope(text string, slots SlotSet) {
	for _, w := range scopeWords {
		if strings.Contains(text, w) {
			scope := w
			switch w {
			case "這週", "这周", "本周":
				scope = "本週"
			case "下周":
				scope = "下週"
			case "所有":
				scope = "全部"
			}
			slots.Set(SlotScope, scope)
			return
		}
	}
}

// enhanceFromContext fills a missing student from an active query-session
// pin, but only for allow-listed intents. Broad inheritance from mentioned
// entities is deliberately off.
func (e *Extractor) enhanceFromContext(intent Intent, slots SlotSet, hints ContextHints) {
	if hints.QueryStudent == "" || slots.Has(SlotStudentName) {
		return
	}
	for _, allowed := range e.cfg.ContextInferIntents {
		if intent == allowed {
			slots.Set(SlotStudentName, hints.QueryStudent)
			return
		}
	}
}

// shouldAssist decides whether the AI slot-extraction capability runs:
// confidence below threshold, or any expected field still empty.
func (e *Extractor) shouldAssist(intent Intent, slots SlotSet, confidence float64) bool {
	if !e.cfg.AIAssist || e.ai == nil {
		return false
	}
	if confidence < e.cfg.AIAssistThreshold {
		return true
	}
	for _, key := range ExpectedFields(intent) {
		if !slots.Has(key) {
			return true
		}
	}
	return false
}

// aiAssist merges AI-extracted values into empty fields only; rule output
// always wins on conflict. Capability failures degrade silently to the rule
// result.
func (e *Extractor) aiAssist(ctx context.Context, text string, intent Intent, slots SlotSet) {
	existing := make(map[string]string, len(slots))
	for k, v := range slots {
		existing[string(k)] = v
	}

	extra, err := e.ai.ExtractSlots(ctx, text, intent.String(), existing)
	if err != nil {
		e.log.WithError(err).Warn("ai slot extraction failed, keeping rule result")
		return
	}
	for k, v := range extra {
		key := SlotKey(k)
		if !slots.Has(key) {
			slots.Set(key, strings.TrimSpace(v))
		}
	}
}

// extractContent pulls free-text content for reminder/record intents:
// the utterance minus the triggering keyword and any leading entity chatter.
func extractContent(text string, intent Intent) (string, bool) {
	// A colon separates entity chatter from the content proper
	// ("記錄小明的數學課：教完第三章"), so it wins over keyword markers.
	for _, sep := range []string{"：", ":"} {
		if idx := strings.Index(text, sep); idx >= 0 {
			content := strings.TrimSpace(text[idx+len(sep):])
			if content != "" {
				return content, true
			}
		}
	}
	markers := []string{"記錄", "记录", "紀錄", "提醒我", "提醒", "筆記", "笔记"}
	for _, m := range markers {
		if idx := strings.Index(text, m); idx >= 0 {
			content := strings.Trim(text[idx+len(m):], " ,:，：。")
			if content != "" {
				return content, true
			}
		}
	}
	return "", false
}
