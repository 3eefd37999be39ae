package main

import (
	"context"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/config"
	"github.com/weilintsai/tutorbot-go/internal/conversation"
	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/metrics"
	"github.com/weilintsai/tutorbot-go/internal/storage"
)

// runContextPurge periodically removes persisted dialogue contexts that have
// outlived the context TTL. The in-memory manager evicts on its own; this
// keeps the SQLite copy from growing across restarts.
func runContextPurge(ctx context.Context, db *storage.DB, ttl time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(config.ContextPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)
			deleted, err := db.PurgeContextsBefore(ctx, cutoff)
			if err != nil {
				log.WithError(err).Error("Failed to purge expired contexts")
				continue
			}
			if deleted > 0 {
				remaining, _ := db.CountContexts(ctx)
				log.WithFields(map[string]interface{}{
					"deleted":   deleted,
					"remaining": remaining,
				}).Info("Purged expired contexts")
			}
		}
	}
}

// runMetricsUpdater periodically refreshes gauge metrics that track live
// state rather than events.
func runMetricsUpdater(ctx context.Context, conv *conversation.Manager, m *metrics.Metrics) {
	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	m.SetActiveContexts(conv.ActiveUsers())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetActiveContexts(conv.ActiveUsers())
		}
	}
}
