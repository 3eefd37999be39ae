package lineutil

import (
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "短文字", TruncateText("短文字", 10))
	assert.Equal(t, "下午三", TruncateText("下午三點半", 3))
	assert.Equal(t, "", TruncateText("任何", 0))
}

func TestNewTextMessage_TruncatesLongText(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("課", MaxTextMessageLength+100)
	msg := NewTextMessage(long)

	runes := []rune(msg.Text)
	assert.LessOrEqual(t, len(runes), MaxTextMessageLength)
	assert.Equal(t, '…', runes[len(runes)-1])
}

func TestNewQuickReply(t *testing.T) {
	t.Parallel()

	t.Run("empty labels", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, NewQuickReply(nil))
		assert.Nil(t, NewQuickReply([]string{"", ""}))
	})

	t.Run("builds message actions", func(t *testing.T) {
		t.Parallel()
		qr := NewQuickReply([]string{"今天", "明天"})
		require.NotNil(t, qr)
		require.Len(t, qr.Items, 2)

		action, ok := qr.Items[0].Action.(*messaging_api.MessageAction)
		require.True(t, ok)
		assert.Equal(t, "今天", action.Label)
		assert.Equal(t, "今天", action.Text)
	})

	t.Run("caps item count", func(t *testing.T) {
		t.Parallel()
		labels := make([]string, MaxQuickReplyItemCount+5)
		for i := range labels {
			labels[i] = strings.Repeat("課", i+1)
		}
		qr := NewQuickReply(labels)
		require.NotNil(t, qr)
		assert.Len(t, qr.Items, MaxQuickReplyItemCount)
	})

	t.Run("truncates label but keeps full text", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("數", MaxQuickReplyLabel+4)
		qr := NewQuickReply([]string{long})
		require.NotNil(t, qr)

		action, ok := qr.Items[0].Action.(*messaging_api.MessageAction)
		require.True(t, ok)
		assert.Len(t, []rune(action.Label), MaxQuickReplyLabel)
		assert.Equal(t, long, action.Text)
	})
}

func TestNewTextMessageWithQuickReply(t *testing.T) {
	t.Parallel()

	msg := NewTextMessageWithQuickReply("請問是哪一天呢？", []string{"今天", "明天"})
	assert.Equal(t, "請問是哪一天呢？", msg.Text)
	require.NotNil(t, msg.QuickReply)
	assert.Len(t, msg.QuickReply.Items, 2)

	plain := NewTextMessageWithQuickReply("好的", nil)
	assert.Nil(t, plain.QuickReply)
}
