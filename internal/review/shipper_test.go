package review

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/storage"
)

type fakeUploader struct {
	keys    []string
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.keys = append(f.keys, key)
	f.objects[key] = data
	return "etag", nil
}

func newTestShipper(t *testing.T, uploader ObjectUploader, cfg ShipperConfig) (*Shipper, *storage.DB) {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if cfg.Prefix == "" {
		cfg.Prefix = "reviews"
	}
	s, err := NewShipper(uploader, db, cfg, logger.New("error"))
	require.NoError(t, err)
	return s, db
}

func decodeJSONL(t *testing.T, data []byte) []storage.ReviewEntry {
	t.Helper()
	gz, err := gzip.NewReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	defer func() { _ = gz.Close() }()

	var entries []storage.ReviewEntry
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		var entry storage.ReviewEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestShipOnceExportsAndMarks(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	s, db := newTestShipper(t, uploader, ShipperConfig{InstanceID: "test"})

	ctx := context.Background()
	require.NoError(t, db.InsertReviewBatch(ctx, []*storage.ReviewEntry{
		{UserID: "U1", Text: "排課", Intent: "add_course", Confidence: 0.4, Issues: []string{"missing_student"}, CreatedAt: 100},
		{UserID: "U2", Text: "嗯", Intent: "unknown", Confidence: 0.1, CreatedAt: 200},
	}))

	shipped, err := s.ShipOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, shipped)

	require.Len(t, uploader.keys, 1)
	key := uploader.keys[0]
	assert.True(t, strings.HasPrefix(key, "reviews/test/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, ".jsonl.gz"), "key %q", key)

	entries := decodeJSONL(t, uploader.objects[key])
	require.Len(t, entries, 2)
	assert.Equal(t, "排課", entries[0].Text)
	assert.Equal(t, []string{"missing_student"}, entries[0].Issues)

	// All entries are now stamped; a second run ships nothing.
	shipped, err = s.ShipOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, shipped)
}

func TestShipOnceEmpty(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	s, _ := newTestShipper(t, uploader, ShipperConfig{})

	shipped, err := s.ShipOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, shipped)
	assert.Empty(t, uploader.keys)
}

func TestShipOnceUploadFailureKeepsEntries(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{err: assert.AnError}
	s, db := newTestShipper(t, uploader, ShipperConfig{})

	ctx := context.Background()
	require.NoError(t, db.InsertReviewBatch(ctx, []*storage.ReviewEntry{
		{UserID: "U1", Text: "x", Intent: "unknown", Confidence: 0.2, CreatedAt: 1},
	}))

	_, err := s.ShipOnce(ctx)
	require.Error(t, err)

	remaining, err := db.ListUnshippedReviews(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestNewShipperValidation(t *testing.T) {
	t.Parallel()

	db, err := storage.NewTestDB()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = NewShipper(nil, db, ShipperConfig{Prefix: "reviews"}, logger.New("error"))
	require.Error(t, err)

	_, err = NewShipper(&fakeUploader{}, db, ShipperConfig{Prefix: "  / "}, logger.New("error"))
	require.Error(t, err)
}
