package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// InsertReviewBatch stores a batch of review entries in one transaction.
func (db *DB) InsertReviewBatch(ctx context.Context, entries []*ReviewEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO review_entries (user_id, text, intent, confidence, issues, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	err := db.ExecBatchContext(ctx, query, func(stmt *sql.Stmt) error {
		for _, entry := range entries {
			issues, err := marshalIssues(entry.Issues)
			if err != nil {
				return fmt.Errorf("failed to encode issues: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, entry.UserID, entry.Text, entry.Intent, entry.Confidence, issues, entry.CreatedAt); err != nil {
				slog.ErrorContext(ctx, "failed to save review entry in batch",
					"user_id", entry.UserID,
					"error", err)
				return fmt.Errorf("failed to save review entry: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		return err
	}

	duration := time.Since(start)
	slog.DebugContext(ctx, "batch operation completed",
		"operation", "InsertReviewBatch",
		"count", len(entries),
		"duration_ms", duration.Milliseconds())

	return nil
}

// ListUnshippedReviews returns up to limit review entries that have not yet
// been exported, oldest first.
func (db *DB) ListUnshippedReviews(ctx context.Context, limit int) ([]*ReviewEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, text, intent, confidence, issues, created_at
		FROM review_entries
		WHERE shipped_at IS NULL
		ORDER BY id ASC
		LIMIT ?
	`
	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unshipped reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*ReviewEntry
	for rows.Next() {
		var entry ReviewEntry
		var issues sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Text, &entry.Intent, &entry.Confidence, &issues, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review entry: %w", err)
		}
		if issues.Valid && issues.String != "" {
			if err := json.Unmarshal([]byte(issues.String), &entry.Issues); err != nil {
				slog.WarnContext(ctx, "corrupt issues payload in review entry",
					"entry_id", entry.ID,
					"error", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review entries: %w", err)
	}

	return entries, nil
}

// MarkReviewsShipped stamps the given entries as exported.
func (db *DB) MarkReviewsShipped(ctx context.Context, ids []int64, shippedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`UPDATE review_entries SET shipped_at = ? WHERE id IN (%s)`, placeholders)

	args := make([]any, 0, len(ids)+1)
	args = append(args, shippedAt.Unix())
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark reviews shipped: %w", err)
	}
	return nil
}

// CountReviews returns (total, unshipped) review entry counts.
func (db *DB) CountReviews(ctx context.Context) (int, int, error) {
	var total, unshipped int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE shipped_at IS NULL) FROM review_entries`,
	).Scan(&total, &unshipped)
	if err != nil {
		return 0, 0, fmt.Errorf("count reviews: %w", err)
	}
	return total, unshipped, nil
}

func marshalIssues(issues []string) (string, error) {
	if len(issues) == 0 {
		return "", nil
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
