package dialog

import (
	"context"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/conversation"
	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/metrics"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
	"github.com/weilintsai/tutorbot-go/internal/task"
)

// confirmIntents require a confirmation turn before execution.
var confirmIntents = map[nlu.Intent]bool{
	nlu.IntentCancelCourse: true,
	nlu.IntentModifyCourse: true,
}

// cancelReplies end an awaiting-confirmation exchange.
var cancelReplies = []string{"算了", "不要", "不用", "取消"}

// Pipeline wires the NLU core, the conversation state and the task trigger
// into one turn handler.
type Pipeline struct {
	classifier *nlu.Classifier
	extractor  *nlu.Extractor
	conv       *conversation.Manager
	trigger    *task.Trigger
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// NewPipeline creates the turn handler. metrics may be nil in tests.
func NewPipeline(classifier *nlu.Classifier, extractor *nlu.Extractor, conv *conversation.Manager, trigger *task.Trigger, m *metrics.Metrics, log *logger.Logger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		extractor:  extractor,
		conv:       conv,
		trigger:    trigger,
		metrics:    m,
		log:        log.WithModule("dialog"),
	}
}

// Handle processes one utterance for one user and returns the response
// decision. It never returns a nil response.
func (p *Pipeline) Handle(ctx context.Context, userID, text string) *Response {
	now := time.Now()
	snapshot := p.conv.Snapshot(userID, now)

	decision := p.classifier.Classify(ctx, text, snapshot, now)
	if decision.ClearPending {
		p.conv.ClearPending(userID)
		p.recordPending("switched")
	}
	p.recordIntent(decision)

	switch {
	case decision.Intent == nlu.IntentCancelPending:
		p.recordPending("canceled")
		return &Response{Kind: KindCanceled, Text: "好的，先不處理這件事了", Intent: decision.Intent}

	case decision.PendingComplete:
		// A supplement or contextual merge completed the original task.
		p.recordPending("completed")
		return p.complete(ctx, userID, decision.Intent, decision.MergedSlots)

	case decision.Intent.IsSupplement():
		p.conv.MergePending(userID, decision.MergedSlots)
		if p.metrics != nil {
			if expect, ok := nlu.ExpectTypeForSlot(firstMissing(decision.Intent)); ok {
				p.metrics.RecordSupplement(string(expect))
			}
		}
		return p.askNext(userID, decision.Intent)

	case decision.Intent == nlu.IntentConfirmAction:
		return p.handleConfirmation(ctx, userID, text)

	case decision.Intent == nlu.IntentUnknown:
		if resp := p.maybeCancelConfirmation(userID, text); resp != nil {
			return resp
		}
		return &Response{Kind: KindUnknown, Text: unknownReply, Intent: nlu.IntentUnknown}
	}

	// Normal path: fresh extraction for a rule/AI-classified intent.
	hints := p.conv.Hints(userID)
	result := p.extractor.Extract(ctx, text, decision.Intent, userID, hints, now)
	p.conv.NoteEntities(userID, result.Slots)
	if p.metrics != nil {
		p.metrics.RecordSlotExtraction(decision.Intent.String(), nlu.IsComplete(decision.Intent, result.Slots))
	}

	if decision.Intent == nlu.IntentQuerySchedule {
		if student, ok := result.Slots.Get(nlu.SlotStudentName); ok {
			p.conv.SetQueryStudent(userID, student)
		}
	}

	if !nlu.IsComplete(decision.Intent, result.Slots) {
		p.conv.BeginPending(userID, decision.Intent, result.Slots, now)
		p.recordPending("created")
		return p.askNext(userID, decision.Intent)
	}

	return p.complete(ctx, userID, decision.Intent, result.Slots)
}

// complete runs a task whose slots satisfy the completion predicate,
// detouring through a confirmation prompt for destructive intents.
func (p *Pipeline) complete(ctx context.Context, userID string, intent nlu.Intent, slots nlu.SlotSet) *Response {
	if confirmIntents[intent] {
		snapshot := p.conv.Get(userID)
		alreadyConfirming := snapshot != nil && snapshot.AwaitingConfirmation &&
			snapshot.Pending != nil && snapshot.Pending.Intent == intent
		if !alreadyConfirming {
			p.conv.BeginPending(userID, intent, slots, time.Now())
			p.conv.SetAwaitingConfirmation(userID, true)
			return &Response{
				Kind:         KindConfirm,
				Text:         confirmPrompt(intent, slots),
				QuickReplies: []string{"確定", "算了"},
				Intent:       intent,
			}
		}
	}

	outcome, err := p.trigger.Fire(ctx, userID, intent, slots)
	if err != nil {
		if outcome != nil && outcome.Retryable {
			return &Response{Kind: KindRetry, Text: outcome.Message, Intent: intent}
		}
		p.log.WithError(err).WithField("intent", intent).Warnf("task trigger failed")
		return &Response{Kind: KindRetry, Text: "這個時間看起來不太對，請再說一次", Intent: intent}
	}
	return &Response{Kind: KindExecute, Text: outcome.Message, Intent: intent}
}

// handleConfirmation resolves a confirm turn against the stored pending
// task.
func (p *Pipeline) handleConfirmation(ctx context.Context, userID, text string) *Response {
	snapshot := p.conv.Get(userID)
	if snapshot == nil || snapshot.Pending == nil {
		return &Response{Kind: KindUnknown, Text: unknownReply, Intent: nlu.IntentConfirmAction}
	}

	pending := snapshot.Pending
	outcome, err := p.trigger.Fire(ctx, userID, pending.Intent, pending.Slots)
	if err != nil {
		if outcome != nil && outcome.Retryable {
			return &Response{Kind: KindRetry, Text: outcome.Message, Intent: pending.Intent}
		}
		return &Response{Kind: KindRetry, Text: "這個時間看起來不太對，請再說一次", Intent: pending.Intent}
	}
	return &Response{Kind: KindExecute, Text: outcome.Message, Intent: pending.Intent}
}

// maybeCancelConfirmation lets a refusal word end an awaiting-confirmation
// exchange that the classifier could not name.
func (p *Pipeline) maybeCancelConfirmation(userID, text string) *Response {
	snapshot := p.conv.Get(userID)
	if snapshot == nil || !snapshot.AwaitingConfirmation {
		return nil
	}
	for _, w := range cancelReplies {
		if text == w {
			p.conv.ClearPending(userID)
			p.recordPending("canceled")
			return &Response{Kind: KindCanceled, Text: "好的，先不處理這件事了", Intent: nlu.IntentCancelPending}
		}
	}
	return nil
}

// askNext asks for the first still-missing field of the pending task.
func (p *Pipeline) askNext(userID string, intent nlu.Intent) *Response {
	snapshot := p.conv.Get(userID)
	hints := p.conv.Hints(userID)

	if snapshot == nil || snapshot.Pending == nil || len(snapshot.Expecting) == 0 {
		return &Response{Kind: KindUnknown, Text: unknownReply, Intent: intent}
	}

	resp := askFor(snapshot.Expecting[0], hints)
	resp.Intent = intent
	return resp
}

func (p *Pipeline) recordIntent(d nlu.Decision) {
	if p.metrics == nil {
		return
	}
	p.metrics.IntentTotal.WithLabelValues(d.Intent.String(), string(d.Source)).Inc()
}

func (p *Pipeline) recordPending(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordPendingTransition(outcome)
	}
}

// firstMissing maps a supplement intent back to the slot it fills.
func firstMissing(intent nlu.Intent) nlu.SlotKey {
	switch intent {
	case nlu.IntentSupplementStudentName:
		return nlu.SlotStudentName
	case nlu.IntentSupplementCourseName:
		return nlu.SlotCourseName
	case nlu.IntentSupplementTime:
		return nlu.SlotScheduleTime
	case nlu.IntentSupplementDate:
		return nlu.SlotCourseDate
	default:
		return ""
	}
}
