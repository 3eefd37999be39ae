// Package webhook receives LINE webhook events, verifies their signature
// and routes text turns through the dialogue pipeline.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/weilintsai/tutorbot-go/internal/config"
	"github.com/weilintsai/tutorbot-go/internal/ctxutil"
	"github.com/weilintsai/tutorbot-go/internal/dialog"
	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/metrics"
	"github.com/weilintsai/tutorbot-go/internal/ratelimit"
)

// TurnHandler processes one user utterance and decides the reply.
type TurnHandler interface {
	Handle(ctx context.Context, userID, text string) *dialog.Response
}

// Replier sends the outward half of a turn back to LINE.
type Replier interface {
	ReplyText(replyToken, text string, quickReplies []string) error
	ShowLoading(chatID string, seconds int32) error
}

const welcomeText = "嗨！我是家教助理，可以幫你排課、查課表、記錄上課內容。\n" +
	"試試看：\n" +
	"・幫小明每週三下午三點排數學課\n" +
	"・查小明這週的課\n" +
	"・記錄小明的數學課：教完第三章"

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	replier       Replier
	pipeline      TurnHandler
	metrics       *metrics.Metrics
	log           *logger.Logger

	global *ratelimit.WebhookRateLimiter
	users  *ratelimit.UserRateLimiter

	timeout   time.Duration
	maxEvents int
	wg        sync.WaitGroup
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	ChannelSecret string
	Replier       Replier
	Pipeline      TurnHandler
	Metrics       *metrics.Metrics
	Logger        *logger.Logger

	// Global reply throughput and per-user turn budget.
	GlobalRPS        float64
	UserBurst        float64
	UserRefillPerSec float64

	// ProcessingTimeout bounds one turn end to end. Zero means
	// config.WebhookProcessing.
	ProcessingTimeout time.Duration

	// MaxEventsPerWebhook caps one delivery batch. Zero means 100.
	MaxEventsPerWebhook int
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("channel secret is required")
	}
	if cfg.Replier == nil {
		return nil, errors.New("replier is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = config.WebhookProcessing
	}
	if cfg.MaxEventsPerWebhook <= 0 {
		cfg.MaxEventsPerWebhook = 100
	}

	return &Handler{
		channelSecret: cfg.ChannelSecret,
		replier:       cfg.Replier,
		pipeline:      cfg.Pipeline,
		metrics:       cfg.Metrics,
		log:           cfg.Logger,
		global:        ratelimit.NewWebhookRateLimiter(cfg.GlobalRPS, cfg.GlobalRPS),
		users: ratelimit.NewUserRateLimiter(
			cfg.UserBurst, cfg.UserRefillPerSec,
			config.RateLimiterCleanupInterval, cfg.Metrics,
		),
		timeout:   cfg.ProcessingTimeout,
		maxEvents: cfg.MaxEventsPerWebhook,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.log.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.log.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE requires a prompt 200; events are processed asynchronously.
	c.Status(http.StatusOK)

	if len(cb.Events) > h.maxEvents {
		h.log.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEvents).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEvents]
	}

	// Copy events so processing never races the HTTP response lifecycle.
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	// Detach from the request context so processing survives the response,
	// keeping only tracing values.
	ctx := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.log.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		for _, event := range events {
			h.processEvent(ctx, event)
		}
	}()
}

// processEvent handles a single webhook event.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		h.processMessage(ctx, e)
	case webhook.FollowEvent:
		h.processFollow(e)
	default:
		h.log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
	}
}

// processMessage runs one text turn through the dialogue pipeline. Only
// direct text messages are handled; the assistant has no group-chat mode.
func (h *Handler) processMessage(ctx context.Context, e webhook.MessageEvent) {
	source, ok := e.Source.(webhook.UserSource)
	if !ok || source.UserId == "" {
		return
	}
	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return
	}

	start := time.Now()
	log := h.log.WithField("user_id", source.UserId)
	if e.WebhookEventId != "" {
		log = log.WithRequestID(e.WebhookEventId)
	}

	if !h.users.Allow(source.UserId) {
		log.Debug("User rate limit exceeded, dropping turn")
		return
	}

	if err := h.replier.ShowLoading(source.UserId, 10); err != nil {
		log.WithError(err).Warn("Failed to show loading animation")
	}

	ctx = ctxutil.WithUserID(ctx, source.UserId)
	if e.WebhookEventId != "" {
		ctx = ctxutil.WithRequestID(ctx, e.WebhookEventId)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := h.pipeline.Handle(ctx, source.UserId, text.Text)

	status := "success"
	if err := h.reply(e.ReplyToken, resp.Text, resp.QuickReplies, log); err != nil {
		status = "reply_error"
	}
	if h.metrics != nil {
		h.metrics.RecordWebhook("message", status, time.Since(start).Seconds())
	}

	log.WithField("intent", resp.Intent.String()).
		WithField("kind", string(resp.Kind)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Turn processed")
}

// processFollow greets a new follower with usage examples.
func (h *Handler) processFollow(e webhook.FollowEvent) {
	start := time.Now()

	err := h.reply(e.ReplyToken, welcomeText, []string{"查這週的課", "幫小明排數學課"}, h.log)
	status := "success"
	if err != nil {
		status = "reply_error"
	}
	if h.metrics != nil {
		h.metrics.RecordWebhook("follow", status, time.Since(start).Seconds())
	}
}

// reply sends one text message, shedding load on the global limiter first.
func (h *Handler) reply(replyToken, text string, quickReplies []string, log *logger.Logger) error {
	if replyToken == "" || text == "" {
		return nil
	}

	if !h.global.Allow() {
		log.Warn("Global rate limit exceeded; waiting")
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("global")
		}
		h.global.WaitSimple()
	}

	if err := h.replier.ReplyText(replyToken, text, quickReplies); err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			log.WithError(err).Debug("Reply token already used or invalid")
		} else {
			log.WithError(err).Error("Failed to send reply")
		}
		return err
	}
	return nil
}

// Shutdown waits for all async event processing to complete and stops the
// per-user limiter. It returns an error if the context is canceled first.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	defer h.users.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
