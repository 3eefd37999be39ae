package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// SaveContext upserts a user's serialized dialogue context.
func (db *DB) SaveContext(ctx context.Context, userID string, payload []byte, updatedAt time.Time) error {
	query := `
		INSERT INTO contexts (user_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query, userID, string(payload), updatedAt.Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save context",
			"user_id", userID,
			"error", err)
		return fmt.Errorf("failed to save context: %w", err)
	}

	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "SaveContext",
			"duration_ms", duration.Milliseconds(),
			"user_id", userID)
	}
	return nil
}

// LoadContext returns a user's serialized context and its last update time.
// A missing row yields (nil, zero time, nil).
func (db *DB) LoadContext(ctx context.Context, userID string) ([]byte, time.Time, error) {
	query := `SELECT payload, updated_at FROM contexts WHERE user_id = ?`

	var payload string
	var updatedAt int64
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(&payload, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load context",
			"user_id", userID,
			"error", err)
		return nil, time.Time{}, fmt.Errorf("query context: %w", err)
	}

	return []byte(payload), time.Unix(updatedAt, 0), nil
}

// DeleteContext removes a user's persisted context.
func (db *DB) DeleteContext(ctx context.Context, userID string) error {
	query := `DELETE FROM contexts WHERE user_id = ?`
	if _, err := db.conn.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	return nil
}

// PurgeContextsBefore deletes contexts not updated since cutoff. Returns the
// number of rows removed.
func (db *DB) PurgeContextsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM contexts WHERE updated_at < ?`
	result, err := db.conn.ExecContext(ctx, query, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge contexts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge contexts: rows affected: %w", err)
	}
	return n, nil
}

// CountContexts returns the number of persisted contexts.
func (db *DB) CountContexts(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count contexts: %w", err)
	}
	return count, nil
}
