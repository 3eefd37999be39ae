// Package dialog orchestrates one conversational turn: classify the
// utterance, extract slots, check completion against the pending state and
// decide between executing, asking for a missing field or confirming.
package dialog

import (
	"fmt"
	"strings"

	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

// ResponseKind is the turn's outward decision.
type ResponseKind string

const (
	// KindExecute means the task ran (successfully or not).
	KindExecute ResponseKind = "execute"
	// KindAskSlot asks the user for a missing field.
	KindAskSlot ResponseKind = "ask_slot"
	// KindConfirm asks the user to confirm a destructive task.
	KindConfirm ResponseKind = "confirm"
	// KindCanceled acknowledges an explicit cancellation.
	KindCanceled ResponseKind = "canceled"
	// KindUnknown is the fallback help reply.
	KindUnknown ResponseKind = "unknown"
	// KindRetry reports a retryable execution failure.
	KindRetry ResponseKind = "retry"
)

// Response is what the transport layer renders.
type Response struct {
	Kind ResponseKind
	Text string
	// QuickReplies are tap-to-answer suggestions for the asked field.
	QuickReplies []string
	// Intent that drove the turn, for logging and metrics.
	Intent nlu.Intent
}

// askPrompts maps each awaited input type to its question.
var askPrompts = map[nlu.ExpectType]string{
	nlu.ExpectStudentName: "請問是哪位學生呢？",
	nlu.ExpectCourseName:  "請問是哪一門課呢？",
	nlu.ExpectTime:        "請問是幾點呢？例如：下午三點",
	nlu.ExpectDate:        "請問是哪一天呢？",
}

var weekdayReplies = []string{"今天", "明天", "週一", "週二", "週三", "週四", "週五", "週六", "週日"}

var timeReplies = []string{"上午十點", "下午三點", "下午四點半", "晚上七點"}

const unknownReply = "不太確定你的意思，可以試試：\n" +
	"・幫小明每週三下午三點排數學課\n" +
	"・查小明這週的課\n" +
	"・記錄小明的數學課：教完第三章"

// askFor builds the clarification response for the first awaited input,
// filling quick replies from recently mentioned entities where they fit.
func askFor(expect nlu.ExpectType, hints nlu.ContextHints) *Response {
	prompt, ok := askPrompts[expect]
	if !ok {
		prompt = "請再補充一下資訊"
	}

	var replies []string
	switch expect {
	case nlu.ExpectStudentName:
		replies = lastN(hints.Students, 4)
	case nlu.ExpectCourseName:
		replies = lastN(hints.Courses, 4)
	case nlu.ExpectDate:
		replies = weekdayReplies
	case nlu.ExpectTime:
		replies = timeReplies
	}

	return &Response{Kind: KindAskSlot, Text: prompt, QuickReplies: replies}
}

// confirmPrompt renders the confirmation question for a destructive task.
func confirmPrompt(intent nlu.Intent, slots nlu.SlotSet) string {
	student, _ := slots.Get(nlu.SlotStudentName)
	course, _ := slots.Get(nlu.SlotCourseName)
	subject := course
	if student != "" && course != "" {
		subject = student + "的" + course
	} else if course == "" {
		subject = strings.TrimSpace(student + "的課")
	}

	switch intent {
	case nlu.IntentCancelCourse:
		return fmt.Sprintf("確定要取消%s嗎？", subject)
	case nlu.IntentModifyCourse:
		return fmt.Sprintf("確定要修改%s嗎？", subject)
	default:
		return "確定要執行嗎？"
	}
}

func lastN(list []string, n int) []string {
	if len(list) <= n {
		return append([]string(nil), list...)
	}
	return append([]string(nil), list[len(list)-n:]...)
}
