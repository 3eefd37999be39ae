package nlu

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu/entity"
)

// IntentCancelPending is the internal outcome of an explicit cancel word
// uttered while a task was pending. Never stored, only acted on.
const IntentCancelPending Intent = "cancel_pending"

// AIClassifier is the external AI classification capability. Implementations
// must bound their own latency; the classifier treats any error as a signal
// to fall back, never as a turn failure.
type AIClassifier interface {
	ClassifyIntent(ctx context.Context, text string) (intent string, confidence float64, err error)
}

// ClassifierConfig tunes classification behavior. Passed in explicitly; the
// classifier never reads process-wide state.
type ClassifierConfig struct {
	// AIFallback enables delegation to the AI capability when rule scoring
	// yields no candidate.
	AIFallback bool
	// AIMinConfidence is the acceptance threshold for AI classifications.
	AIMinConfidence float64
	// PendingTTL is the maximum age of a pending task before it stops being
	// a supplement target.
	PendingTTL time.Duration
}

// Classifier assigns an intent to each utterance. See Classify for the
// per-turn state machine.
type Classifier struct {
	rules     []intentRule
	extractor *Extractor
	ai        AIClassifier
	cfg       ClassifierConfig
	log       *logger.Logger
}

// NewClassifier creates a classifier over the package rule table.
func NewClassifier(extractor *Extractor, ai AIClassifier, cfg ClassifierConfig, log *logger.Logger) *Classifier {
	if cfg.AIMinConfidence <= 0 {
		cfg.AIMinConfidence = 0.65
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 2 * time.Minute
	}
	return &Classifier{
		rules:     intentRules,
		extractor: extractor,
		ai:        ai,
		cfg:       cfg,
		log:       log,
	}
}

// Classify runs the single-turn state machine:
//  1. pending-input handling (complete-in-context, then supplement match),
//  2. rule scoring with priority tie-breaking,
//  3. AI fallback gated on confidence,
//  4. context gating of confirmation intents.
//
// State mutations implied by the decision are applied by the caller.
func (c *Classifier) Classify(ctx context.Context, text string, pending *PendingSnapshot, now time.Time) Decision {
	text = strings.TrimSpace(text)
	if text == "" {
		return Decision{Intent: IntentUnknown, Source: SourceFallback}
	}

	clearPending := false
	if pending.HasPending() && (len(pending.Expecting) > 0 || pending.ExecutionFailed) {
		switch d, handled := c.classifyPending(text, pending, now); {
		case handled:
			return d
		case d.ClearPending:
			clearPending = true
		}
	}

	if intent, ok := c.scoreRules(text, pending); ok {
		return Decision{Intent: intent, Source: SourceRule, ClearPending: clearPending}
	}

	if c.cfg.AIFallback && c.ai != nil {
		if intent, ok := c.classifyWithAI(ctx, text); ok {
			return Decision{Intent: intent, Source: SourceAI, ClearPending: clearPending}
		}
	}

	return Decision{Intent: IntentUnknown, Source: SourceFallback, ClearPending: clearPending}
}

// classifyPending handles the supplement-merge protocol. handled=false means
// normal classification proceeds; the returned decision then only carries
// the ClearPending flag.
func (c *Classifier) classifyPending(text string, pending *PendingSnapshot, now time.Time) (Decision, bool) {
	// Expired pending state is treated as absent, not as an error.
	if pending.Age > c.cfg.PendingTTL {
		return Decision{ClearPending: true}, false
	}

	for _, w := range cancelWords {
		if text == w {
			return Decision{Intent: IntentCancelPending, Source: SourceSupplement, ClearPending: true}, true
		}
	}

	// An explicit intent switch cancels the pending task and re-classifies.
	for _, kw := range intentSwitchKeywords {
		if strings.Contains(text, kw) {
			return Decision{ClearPending: true}, false
		}
	}

	// A task rolled back by execution failure keeps its complete slot set.
	// It re-fires on a retry word or a corrected field, never on an
	// unrelated utterance.
	if pending.ExecutionFailed && len(pending.Missing) == 0 {
		return c.classifyRetry(text, pending, now)
	}

	// Complete-in-context: re-extract for the original intent and merge.
	extracted := c.extractor.RuleOnly(text, pending.Intent, now)
	merged := pending.Slots.Clone()
	merged.MergeMissing(extracted)
	if IsComplete(pending.Intent, merged) {
		return Decision{
			Intent:          pending.Intent,
			Source:          SourceContext,
			MergedSlots:     merged,
			PendingComplete: true,
		}, true
	}

	// Supplement interpretation against the specific expected inputs.
	for _, expect := range pending.Expecting {
		key, value, ok := c.supplementValue(text, pending.Intent, expect, now)
		if !ok {
			continue
		}
		merged := pending.Slots.Clone()
		merged.Set(key, value)
		if IsComplete(pending.Intent, merged) {
			// The filled slot completes the original task; answer as the
			// original intent rather than a supplement.
			return Decision{
				Intent:          pending.Intent,
				Source:          SourceContext,
				MergedSlots:     merged,
				SupplementValue: value,
				PendingComplete: true,
			}, true
		}
		return Decision{
			Intent:          expect.SupplementIntent(),
			Source:          SourceSupplement,
			MergedSlots:     merged,
			SupplementValue: value,
		}, true
	}

	return Decision{}, false
}

// classifyRetry resolves an utterance against a failed-but-complete pending
// task. A retry word re-fires with the preserved slots; a turn carrying new
// slot values overrides the stale fields and re-fires with the correction.
func (c *Classifier) classifyRetry(text string, pending *PendingSnapshot, now time.Time) (Decision, bool) {
	for _, w := range retryWords {
		if text == w {
			return Decision{
				Intent:          pending.Intent,
				Source:          SourceContext,
				MergedSlots:     pending.Slots.Clone(),
				PendingComplete: true,
			}, true
		}
	}

	key, value, ok := c.correctionValue(text, pending.Intent, now)
	if !ok {
		return Decision{}, false
	}
	merged := pending.Slots.Clone()
	merged.Set(key, value)
	if !IsComplete(pending.Intent, merged) {
		return Decision{}, false
	}
	return Decision{
		Intent:          pending.Intent,
		Source:          SourceContext,
		MergedSlots:     merged,
		SupplementValue: value,
		PendingComplete: true,
	}, true
}

// correctionValue interprets a short utterance as a corrected field for a
// failed task. Shape-matched like supplements so chatter that merely
// mentions a date word cannot re-fire an execution.
func (c *Classifier) correctionValue(text string, intent Intent, now time.Time) (SlotKey, string, bool) {
	if clock, ok := c.extractor.parser.ParseClock(text); ok {
		if intent == IntentSetReminder {
			return SlotReminderTime, clock, true
		}
		return SlotScheduleTime, clock, true
	}
	if entity.LooksLikeBareName(text) {
		return SlotStudentName, text, true
	}
	if name, ok := c.extractor.matcher.StudentName(text); ok {
		return SlotStudentName, name, true
	}
	if name, ok := c.extractor.matcher.CourseName(text); ok {
		return SlotCourseName, name, true
	}
	// Bare date words only; longer utterances mentioning 今天 are chatter.
	if len([]rune(text)) <= 5 {
		if date, ok := c.extractor.parser.ParseDate(text, now); ok {
			return SlotCourseDate, date, true
		}
		if token, _, ok := c.extractor.parser.ParseWeekday(text); ok {
			return SlotDayOfWeek, token, true
		}
	}
	return "", "", false
}

// supplementValue matches the utterance shape against one expected input:
// name-length heuristics for names, time tokens for times, date/weekday
// keywords for dates.
func (c *Classifier) supplementValue(text string, intent Intent, expect ExpectType, now time.Time) (SlotKey, string, bool) {
	switch expect {
	case ExpectStudentName:
		if entity.LooksLikeBareName(text) {
			return SlotStudentName, text, true
		}
		if name, ok := c.extractor.matcher.StudentName(text); ok {
			return SlotStudentName, name, true
		}
	case ExpectCourseName:
		if name, ok := c.extractor.matcher.CourseName(text); ok {
			return SlotCourseName, name, true
		}
	case ExpectTime:
		if clock, ok := c.extractor.parser.ParseClock(text); ok {
			// Reminders keep their trigger time apart from course times.
			if intent == IntentSetReminder {
				return SlotReminderTime, clock, true
			}
			return SlotScheduleTime, clock, true
		}
	case ExpectDate:
		if date, ok := c.extractor.parser.ParseDate(text, now); ok {
			return SlotCourseDate, date, true
		}
		if token, _, ok := c.extractor.parser.ParseWeekday(text); ok {
			return SlotDayOfWeek, token, true
		}
	}
	return "", "", false
}

type scoredIntent struct {
	intent   Intent
	score    int
	priority int
}

// scoreRules scores every rule and returns the best surviving candidate.
func (c *Classifier) scoreRules(text string, pending *PendingSnapshot) (Intent, bool) {
	var candidates []scoredIntent

	for _, r := range c.rules {
		if !containsAny(text, r.requireAny, true) {
			continue
		}
		if len(r.excludeAny) > 0 && containsAny(text, r.excludeAny, false) {
			continue
		}
		// Context gating: confirmation-style intents need a recent action
		// or an active confirmation prompt.
		if _, gated := contextGatedIntents[r.intent]; gated {
			if pending == nil || (!pending.HasRecentAction && !pending.AwaitingConfirmation) {
				continue
			}
		}

		score := 0
		if containsAny(text, r.keywords, false) {
			score += 10
		}
		for _, p := range r.patterns {
			if p.MatchString(text) {
				score += 15
				break
			}
		}
		if score == 0 {
			continue
		}
		score += 20 - r.priority
		candidates = append(candidates, scoredIntent{intent: r.intent, score: score, priority: r.priority})
	}

	if len(candidates) == 0 {
		return IntentUnknown, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].priority < candidates[j].priority
	})
	return candidates[0].intent, true
}

// classifyWithAI delegates to the AI capability, accepting the result only
// above the confidence threshold and only for known intents.
func (c *Classifier) classifyWithAI(ctx context.Context, text string) (Intent, bool) {
	raw, confidence, err := c.ai.ClassifyIntent(ctx, text)
	if err != nil {
		c.log.WithError(err).Warn("ai intent classification failed, staying with rules")
		return IntentUnknown, false
	}
	if confidence < c.cfg.AIMinConfidence {
		return IntentUnknown, false
	}
	intent, ok := ParseIntent(raw)
	if !ok || intent == IntentUnknown {
		return IntentUnknown, false
	}
	return intent, true
}

// ParseIntent validates a raw intent string against the known set.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentAddCourse, IntentQuerySchedule, IntentCancelCourse,
		IntentModifyCourse, IntentSetReminder, IntentRecordContent,
		IntentConfirmAction, IntentSupplementStudentName,
		IntentSupplementCourseName, IntentSupplementTime,
		IntentSupplementDate, IntentUnknown:
		return Intent(s), true
	}
	return IntentUnknown, false
}

// containsAny reports whether text contains any of the words.
// emptyResult is returned for an empty word list.
func containsAny(text string, words []string, emptyResult bool) bool {
	if len(words) == 0 {
		return emptyResult
	}
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
