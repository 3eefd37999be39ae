// Package lineutil builds LINE Messaging API payloads: text messages,
// quick reply buttons and the reply sender used by the webhook handler.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// TruncateText truncates text to maxRunes runes, never splitting a rune.
func TruncateText(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}

// NewTextMessage creates a text message, truncating over-long content
// instead of letting the API reject the whole reply.
func NewTextMessage(text string) *messaging_api.TextMessage {
	if len([]rune(text)) > MaxTextMessageLength {
		text = TruncateText(text, MaxTextMessageLength-1) + "…"
	}
	return &messaging_api.TextMessage{Text: text}
}

// NewQuickReply builds a quick reply bar from plain labels. Each button
// sends its label back as a message, which is exactly the supplement-turn
// protocol the dialogue layer expects. Labels beyond the API item limit
// are dropped; over-long labels are truncated.
func NewQuickReply(labels []string) *messaging_api.QuickReply {
	if len(labels) == 0 {
		return nil
	}
	if len(labels) > MaxQuickReplyItemCount {
		labels = labels[:MaxQuickReplyItemCount]
	}

	items := make([]messaging_api.QuickReplyItem, 0, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		short := TruncateText(label, MaxQuickReplyLabel)
		items = append(items, messaging_api.QuickReplyItem{
			Action: &messaging_api.MessageAction{
				Label: short,
				Text:  label,
			},
		})
	}
	if len(items) == 0 {
		return nil
	}
	return &messaging_api.QuickReply{Items: items}
}

// NewTextMessageWithQuickReply creates a text message carrying quick reply
// buttons for the given labels.
func NewTextMessageWithQuickReply(text string, labels []string) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	msg.QuickReply = NewQuickReply(labels)
	return msg
}
