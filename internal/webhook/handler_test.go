package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weilintsai/tutorbot-go/internal/dialog"
	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

const testSecret = "test-channel-secret"

type fakePipeline struct {
	mu    sync.Mutex
	calls []string
	resp  *dialog.Response
}

func (p *fakePipeline) Handle(_ context.Context, userID, text string) *dialog.Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, userID+":"+text)
	if p.resp != nil {
		return p.resp
	}
	return &dialog.Response{Kind: dialog.KindUnknown, Text: "ok", Intent: nlu.IntentUnknown}
}

func (p *fakePipeline) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []string
	quicks  [][]string
}

func (r *fakeReplier) ReplyText(_, text string, quickReplies []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	r.quicks = append(r.quicks, quickReplies)
	return nil
}

func (r *fakeReplier) ShowLoading(string, int32) error { return nil }

func (r *fakeReplier) replyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies)
}

func newTestHandler(t *testing.T, pipeline *fakePipeline, replier *fakeReplier) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerConfig{
		ChannelSecret:    testSecret,
		Replier:          replier,
		Pipeline:         pipeline,
		Logger:           logger.NewWithWriter("error", io.Discard),
		GlobalRPS:        100,
		UserBurst:        10,
		UserRefillPerSec: 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-line-signature", signature)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func textEventBody(userID, text string) []byte {
	return fmt.Appendf(nil,
		`{"destination":"bot","events":[{"type":"message","mode":"active","timestamp":1700000000000,`+
			`"webhookEventId":"evt-1","deliveryContext":{"isRedelivery":false},`+
			`"source":{"type":"user","userId":%q},"replyToken":"rtoken-1",`+
			`"message":{"type":"text","id":"m1","text":%q}}]}`,
		userID, text)
}

func TestHandler_RejectsInvalidSignature(t *testing.T) {
	pipeline := &fakePipeline{}
	h := newTestHandler(t, pipeline, &fakeReplier{})

	body := textEventBody("U1", "查小明這週的課")
	w := postWebhook(t, h, body, "bad-signature")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, pipeline.callCount())
}

func TestHandler_RoutesTextTurn(t *testing.T) {
	pipeline := &fakePipeline{
		resp: &dialog.Response{
			Kind:         dialog.KindAskSlot,
			Text:         "請問是哪一天呢？",
			QuickReplies: []string{"今天", "明天"},
			Intent:       nlu.IntentAddCourse,
		},
	}
	replier := &fakeReplier{}
	h := newTestHandler(t, pipeline, replier)

	body := textEventBody("U1", "幫小明排數學課")
	w := postWebhook(t, h, body, signBody(body))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool { return replier.replyCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	replier.mu.Lock()
	defer replier.mu.Unlock()
	assert.Equal(t, "請問是哪一天呢？", replier.replies[0])
	assert.Equal(t, []string{"今天", "明天"}, replier.quicks[0])

	pipeline.mu.Lock()
	defer pipeline.mu.Unlock()
	assert.Equal(t, []string{"U1:幫小明排數學課"}, pipeline.calls)
}

func TestHandler_GreetsOnFollow(t *testing.T) {
	replier := &fakeReplier{}
	h := newTestHandler(t, &fakePipeline{}, replier)

	body := []byte(`{"destination":"bot","events":[{"type":"follow","mode":"active",` +
		`"timestamp":1700000000000,"webhookEventId":"evt-2",` +
		`"deliveryContext":{"isRedelivery":false},` +
		`"source":{"type":"user","userId":"U2"},"replyToken":"rtoken-2"}]}`)
	w := postWebhook(t, h, body, signBody(body))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool { return replier.replyCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	replier.mu.Lock()
	defer replier.mu.Unlock()
	assert.Contains(t, replier.replies[0], "家教助理")
}

func TestHandler_IgnoresGroupMessages(t *testing.T) {
	pipeline := &fakePipeline{}
	replier := &fakeReplier{}
	h := newTestHandler(t, pipeline, replier)

	body := []byte(`{"destination":"bot","events":[{"type":"message","mode":"active",` +
		`"timestamp":1700000000000,"webhookEventId":"evt-3",` +
		`"deliveryContext":{"isRedelivery":false},` +
		`"source":{"type":"group","groupId":"G1","userId":"U3"},"replyToken":"rtoken-3",` +
		`"message":{"type":"text","id":"m3","text":"查課表"}}]}`)
	w := postWebhook(t, h, body, signBody(body))

	assert.Equal(t, http.StatusOK, w.Code)

	// Give async processing a moment, then confirm nothing happened.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, pipeline.callCount())
	assert.Equal(t, 0, replier.replyCount())
}

func TestHandler_PerUserRateLimit(t *testing.T) {
	pipeline := &fakePipeline{}
	replier := &fakeReplier{}
	h, err := NewHandler(HandlerConfig{
		ChannelSecret:    testSecret,
		Replier:          replier,
		Pipeline:         pipeline,
		Logger:           logger.NewWithWriter("error", io.Discard),
		GlobalRPS:        100,
		UserBurst:        1,
		UserRefillPerSec: 0.001,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})

	for i := 0; i < 3; i++ {
		body := textEventBody("U9", "查課表")
		postWebhook(t, h, body, signBody(body))
	}

	require.Eventually(t, func() bool { return pipeline.callCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, pipeline.callCount())
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerConfig{Replier: &fakeReplier{}, Pipeline: &fakePipeline{}})
	assert.Error(t, err)

	_, err = NewHandler(HandlerConfig{ChannelSecret: "s", Pipeline: &fakePipeline{}})
	assert.Error(t, err)

	_, err = NewHandler(HandlerConfig{ChannelSecret: "s", Replier: &fakeReplier{}})
	assert.Error(t, err)
}
