package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(db *sql.DB) error {
	if err := createContextsTable(db); err != nil {
		return err
	}
	return createReviewEntriesTable(db)
}

// createContextsTable stores one serialized dialogue context per user.
// The payload is the JSON form of the in-memory context; expiry is decided
// by the conversation layer from updated_at, not by the database.
func createContextsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS contexts (
		user_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contexts_updated_at ON contexts(updated_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create contexts table: %w", err)
	}

	return nil
}

// createReviewEntriesTable stores low-confidence turns queued for offline
// review. shipped_at marks entries already exported to object storage.
func createReviewEntriesTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS review_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		intent TEXT NOT NULL,
		confidence REAL NOT NULL,
		issues TEXT,
		created_at INTEGER NOT NULL,
		shipped_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_review_entries_shipped ON review_entries(shipped_at);
	CREATE INDEX IF NOT EXISTS idx_review_entries_created_at ON review_entries(created_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create review_entries table: %w", err)
	}

	return nil
}
