// Package main provides the tutoring-assistant LINE bot server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/weilintsai/tutorbot-go/internal/aicap"
	"github.com/weilintsai/tutorbot-go/internal/buildinfo"
	"github.com/weilintsai/tutorbot-go/internal/config"
	"github.com/weilintsai/tutorbot-go/internal/conversation"
	"github.com/weilintsai/tutorbot-go/internal/dialog"
	"github.com/weilintsai/tutorbot-go/internal/lineutil"
	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/metrics"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
	"github.com/weilintsai/tutorbot-go/internal/nlu/entity"
	"github.com/weilintsai/tutorbot-go/internal/nlu/timeparse"
	"github.com/weilintsai/tutorbot-go/internal/r2client"
	"github.com/weilintsai/tutorbot-go/internal/ratelimit"
	"github.com/weilintsai/tutorbot-go/internal/review"
	"github.com/weilintsai/tutorbot-go/internal/schedule"
	"github.com/weilintsai/tutorbot-go/internal/sentry"
	"github.com/weilintsai/tutorbot-go/internal/storage"
	"github.com/weilintsai/tutorbot-go/internal/task"
	"github.com/weilintsai/tutorbot-go/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log.Logger)
	log.WithFields(map[string]interface{}{
		"server":  cfg.ServerName,
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	}).Info("Starting tutorbot server")

	if cfg.Sentry.Enabled {
		if err := sentry.Initialize(sentry.Config{
			DSN:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			Release:          cfg.Sentry.Release,
			SampleRate:       cfg.Sentry.SampleRate,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			log.WithError(err).Warn("Failed to initialize Sentry, error tracking disabled")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)
	metrics.RegisterLLM(registry)
	log.Info("Metrics initialized")

	// NLU core: time parsing, entity matching, then the extraction and
	// classification pipeline around them.
	parser := timeparse.New(timeparse.Options{DefaultPeriod: cfg.NLU.DefaultPeriod})
	matcher := entity.NewMatcher(parser)

	ai, llmLimiter := buildAICapability(cfg, m, log)
	if ai != nil {
		defer func() { _ = ai.Close() }()
	}
	if llmLimiter != nil {
		defer llmLimiter.Stop()
	}

	reporter := review.NewReporter(db, m, review.ReporterConfig{
		QueueSize: cfg.Review.QueueSize,
	}, log)
	defer reporter.Close()

	var slotFiller nlu.SlotFiller
	var aiClassifier nlu.AIClassifier
	if ai != nil {
		slotFiller = ai
		aiClassifier = ai
	}

	extractor := nlu.NewExtractor(matcher, parser, slotFiller, reporter, nlu.ExtractorConfig{
		AIAssist:          cfg.NLU.AIFallback,
		AIAssistThreshold: cfg.NLU.AIAssistBelow,
		ReviewThreshold:   cfg.NLU.ReviewBelow,
		DailyRecurrence:   cfg.NLU.DailyRecurrence,
	}, log)

	classifier := nlu.NewClassifier(extractor, aiClassifier, nlu.ClassifierConfig{
		AIFallback:      cfg.NLU.AIFallback,
		AIMinConfidence: cfg.NLU.AIMinConfidence,
		PendingTTL:      cfg.Conversation.PendingTTL,
	}, log)

	conv := conversation.NewManager(conversation.Config{
		ContextTTL:    cfg.Conversation.ContextTTL,
		PendingTTL:    cfg.Conversation.PendingTTL,
		CleanupPeriod: config.ContextCleanupInterval,
	}, log)
	if cfg.PersistContexts {
		conv.AttachStore(db)
		log.Info("Context persistence enabled")
	}

	book := schedule.NewBook(log)
	trigger := task.NewTrigger(book, conv, m, task.Config{
		ExecutionTimeout: config.TaskExecution,
	}, log)

	pipeline := dialog.NewPipeline(classifier, extractor, conv, trigger, m, log)

	lineClient, err := lineutil.NewClient(cfg.LineChannelToken)
	if err != nil {
		log.WithError(err).Fatal("Failed to create LINE client")
	}

	handler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret:    cfg.LineChannelSecret,
		Replier:          lineClient,
		Pipeline:         pipeline,
		Metrics:          m,
		Logger:           log,
		GlobalRPS:        cfg.Rate.GlobalRPS,
		UserBurst:        cfg.Rate.UserBurst,
		UserRefillPerSec: cfg.Rate.UserRefillPerSec,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create webhook handler")
	}
	log.Info("Webhook handler created")

	shipper := buildShipper(cfg, db, log)

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		sentry.CaptureMessage(fmt.Sprintf("panic in %s: %v", c.FullPath(), recovered))
		log.WithField("panic", recovered).Error("Panic in HTTP handler")
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(log))

	setupRoutes(router, handler, db, registry, trigger, conv, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.WebhookHTTPRead,
		WriteTimeout: config.WebhookHTTPWrite,
		IdleTimeout:  config.WebhookHTTPIdle,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		runContextPurge(gctx, db, cfg.Conversation.ContextTTL, log)
		return nil
	})

	g.Go(func() error {
		runMetricsUpdater(gctx, conv, m)
		return nil
	})

	if shipper != nil {
		g.Go(func() error {
			return shipper.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := handler.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Timed out waiting for in-flight turns")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// buildAICapability assembles the provider chain behind the per-user call
// budget. Returns nils when no provider and no local fallback is
// configured, leaving the rule-based path on its own.
func buildAICapability(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*aicap.BudgetedAdapter, *ratelimit.LLMRateLimiter) {
	if !cfg.LLM.HasAnyProvider() && !cfg.LLM.LocalFallback {
		log.Info("AI capability disabled, using rule-based parsing only")
		return nil, nil
	}

	chain, err := aicap.NewFromConfig(context.Background(), cfg.LLM)
	if err != nil {
		log.WithError(err).Warn("Failed to build AI parser chain, using rule-based parsing only")
		return nil, nil
	}

	limiter := ratelimit.NewLLMRateLimiter(ratelimit.LLMConfig{
		Burst:         cfg.Rate.LLMBurst,
		MaxPerHour:    cfg.Rate.LLMRefillPerHour,
		DailyLimit:    cfg.Rate.LLMDailyLimit,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	log.WithField("providers", cfg.LLM.ConfiguredProviders()).Info("AI capability enabled")
	return aicap.NewBudgetedAdapter(aicap.NewNLUAdapter(chain), limiter), limiter
}

// buildShipper wires the review-log uploader when R2 is configured.
func buildShipper(cfg *config.Config, db *storage.DB, log *logger.Logger) *review.Shipper {
	if !cfg.R2.Enabled {
		return nil
	}

	r2, err := r2client.New(context.Background(), r2client.Config{
		Endpoint:    cfg.R2.Endpoint(),
		AccessKeyID: cfg.R2.AccessKeyID,
		SecretKey:   cfg.R2.SecretAccessKey,
		BucketName:  cfg.R2.BucketName,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to create R2 client, review shipping disabled")
		return nil
	}

	shipper, err := review.NewShipper(r2, db, review.ShipperConfig{
		Prefix:     cfg.Review.ShipPrefix,
		InstanceID: cfg.InstanceID,
		Interval:   cfg.Review.ShipInterval,
	}, log)
	if err != nil {
		log.WithError(err).Warn("Failed to create review shipper, review shipping disabled")
		return nil
	}

	log.WithField("bucket", cfg.R2.BucketName).Info("Review shipping enabled")
	return shipper
}
