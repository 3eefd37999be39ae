package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemory(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	assert.Equal(t, ":memory:", db.Path())
	assert.NotNil(t, db.Conn())
}

func TestSchemaTablesExist(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, table := range []string{"contexts", "review_entries"} {
		var name string
		err := db.Conn().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestExecBatchContextRollsBackOnError(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	boom := errors.New("boom")

	query := `INSERT INTO contexts (user_id, payload, updated_at) VALUES (?, ?, ?)`
	err = db.ExecBatchContext(ctx, query, func(stmt *sql.Stmt) error {
		if _, err := stmt.ExecContext(ctx, "U1", "{}", time.Now().Unix()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := db.CountContexts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch should leave no rows")
}
