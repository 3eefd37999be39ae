// Package review captures low-confidence turns for offline inspection.
// Reporting is fire-and-forget: entries go through a bounded queue into
// SQLite and are dropped, never blocking a turn, when the queue is full.
// A shipper periodically exports stored entries to object storage.
package review

import (
	"context"
	"sync"
	"time"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/metrics"
	"github.com/weilintsai/tutorbot-go/internal/storage"
)

// ReporterConfig tunes the async review queue.
type ReporterConfig struct {
	// QueueSize bounds the in-flight entries between Report and the writer.
	QueueSize int
	// BatchSize flushes to SQLite once this many entries accumulate.
	BatchSize int
	// FlushInterval flushes a partial batch after this long.
	FlushInterval time.Duration
}

func (c *ReporterConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
}

// Reporter queues review entries and writes them to storage in batches.
type Reporter struct {
	db      *storage.DB
	metrics *metrics.Metrics
	cfg     ReporterConfig
	log     *logger.Logger

	queue chan *storage.ReviewEntry
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewReporter creates a reporter and starts its background writer.
func NewReporter(db *storage.DB, m *metrics.Metrics, cfg ReporterConfig, log *logger.Logger) *Reporter {
	cfg.applyDefaults()
	r := &Reporter{
		db:      db,
		metrics: m,
		cfg:     cfg,
		log:     log,
		queue:   make(chan *storage.ReviewEntry, cfg.QueueSize),
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Report enqueues one low-confidence turn. Never blocks; the entry is
// dropped when the queue is full.
func (r *Reporter) Report(userID, text string, intent string, confidence float64, issues []string) {
	entry := &storage.ReviewEntry{
		UserID:     userID,
		Text:       text,
		Intent:     intent,
		Confidence: confidence,
		Issues:     issues,
		CreatedAt:  time.Now().Unix(),
	}

	reason := "low_confidence"
	if len(issues) > 0 {
		reason = issues[0]
	}

	select {
	case r.queue <- entry:
		if r.metrics != nil {
			r.metrics.RecordReviewQueued(reason)
		}
	default:
		if r.metrics != nil {
			r.metrics.RecordReviewDropped()
		}
		r.log.WithField("user_id", userID).Warn("review queue full, dropping entry")
	}
}

// Close flushes pending entries and stops the writer.
func (r *Reporter) Close() {
	close(r.stop)
	r.wg.Wait()
}

func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*storage.ReviewEntry, 0, r.cfg.BatchSize)
	for {
		select {
		case entry := <-r.queue:
			batch = append(batch, entry)
			if len(batch) >= r.cfg.BatchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C:
			batch = r.flush(batch)
		case <-r.stop:
			// Drain whatever Report managed to enqueue before Close.
			for {
				select {
				case entry := <-r.queue:
					batch = append(batch, entry)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes the batch and returns an empty slice reusing its backing
// array. On error the batch is dropped; review is best-effort.
func (r *Reporter) flush(batch []*storage.ReviewEntry) []*storage.ReviewEntry {
	if len(batch) == 0 {
		return batch
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.db.InsertReviewBatch(ctx, batch); err != nil {
		r.log.WithError(err).WithField("count", len(batch)).Error("failed to flush review batch")
	}
	return batch[:0]
}
