package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/storage"
)

// ObjectUploader is the slice of the object-storage client the shipper
// needs.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ShipperConfig tunes batch export of review entries.
type ShipperConfig struct {
	// Prefix is the object key prefix inside the bucket.
	Prefix string
	// InstanceID separates objects written by different instances.
	InstanceID string
	// Interval is how often pending entries are exported.
	Interval time.Duration
	// BatchSize caps entries per exported object.
	BatchSize int
}

func (c *ShipperConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.InstanceID == "" {
		c.InstanceID = "unknown"
	}
}

// Shipper periodically exports unshipped review entries as gzip JSONL
// objects. Export failures are logged and retried on the next tick; they
// never affect the message pipeline.
type Shipper struct {
	uploader ObjectUploader
	db       *storage.DB
	cfg      ShipperConfig
	log      *logger.Logger
}

// NewShipper creates a shipper. The uploader is required.
func NewShipper(uploader ObjectUploader, db *storage.DB, cfg ShipperConfig, log *logger.Logger) (*Shipper, error) {
	if uploader == nil {
		return nil, errors.New("review: uploader is required")
	}
	cfg.Prefix = normalizePrefix(cfg.Prefix)
	if cfg.Prefix == "" {
		return nil, errors.New("review: prefix must not be empty")
	}
	cfg.applyDefaults()
	return &Shipper{uploader: uploader, db: db, cfg: cfg, log: log}, nil
}

// Run ships on a fixed interval until ctx is canceled.
func (s *Shipper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			shipped, err := s.ShipOnce(ctx)
			if err != nil {
				s.log.WithError(err).Error("review shipping failed")
				continue
			}
			if shipped > 0 {
				s.log.WithField("count", shipped).Info("shipped review entries")
			}
		}
	}
}

// ShipOnce exports one batch of unshipped entries. Returns how many entries
// were shipped.
func (s *Shipper) ShipOnce(ctx context.Context) (int, error) {
	entries, err := s.db.ListUnshippedReviews(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("review: list unshipped: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	data, err := encodeBatch(entries)
	if err != nil {
		return 0, fmt.Errorf("review: encode batch: %w", err)
	}

	key := s.objectKey()
	if _, err := s.uploader.Upload(ctx, key, bytes.NewReader(data), "application/gzip"); err != nil {
		return 0, fmt.Errorf("review: upload batch: %w", err)
	}

	ids := make([]int64, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}
	if err := s.db.MarkReviewsShipped(ctx, ids, time.Now()); err != nil {
		// The object is uploaded but the rows stay unshipped; the next tick
		// re-exports them as a duplicate object rather than losing data.
		return 0, fmt.Errorf("review: mark shipped: %w", err)
	}

	return len(entries), nil
}

// encodeBatch renders entries as gzip-compressed JSON lines.
func encodeBatch(entries []*storage.ReviewEntry) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			_ = gz.Close()
			return nil, fmt.Errorf("encode entry %d: %w", entry.ID, err)
		}
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Shipper) objectKey() string {
	return fmt.Sprintf("%s/%s/%d-%s.jsonl.gz", s.cfg.Prefix, s.cfg.InstanceID, time.Now().UnixNano(), uuid.NewString())
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
