package conversation

import (
	"context"
	"encoding/json"
	"time"
)

// Store persists serialized contexts so dialogue state survives restarts.
// The manager treats it as write-through: the in-memory cache stays the
// source of truth and the store is consulted only on a cache miss.
type Store interface {
	SaveContext(ctx context.Context, userID string, payload []byte, updatedAt time.Time) error
	LoadContext(ctx context.Context, userID string) ([]byte, time.Time, error)
	DeleteContext(ctx context.Context, userID string) error
}

const storeTimeout = 3 * time.Second

// persist writes the context through to the store. Failures are logged and
// otherwise ignored; the in-memory state is already updated.
func (m *Manager) persist(c *Context) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	payload, err := json.Marshal(c)
	if err != nil {
		m.log.WithError(err).WithField("user_id", c.UserID).Error("failed to encode context")
		return
	}
	if err := m.store.SaveContext(ctx, c.UserID, payload, c.UpdatedAt); err != nil {
		m.log.WithError(err).WithField("user_id", c.UserID).Error("failed to persist context")
	}
}

// restore fetches a persisted context after a cache miss. Returns nil when
// nothing usable is stored or the persisted context has expired.
func (m *Manager) restore(userID string, now time.Time) *Context {
	if m.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	payload, updatedAt, err := m.store.LoadContext(ctx, userID)
	if err != nil {
		m.log.WithError(err).WithField("user_id", userID).Error("failed to load persisted context")
		return nil
	}
	if payload == nil {
		return nil
	}

	remaining := m.cfg.ContextTTL - now.Sub(updatedAt)
	if remaining <= 0 {
		return nil
	}

	var c Context
	if err := json.Unmarshal(payload, &c); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Error("corrupt persisted context")
		return nil
	}

	m.cache.Set(userID, &c, remaining)
	return &c
}

func (m *Manager) dropPersisted(userID string) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := m.store.DeleteContext(ctx, userID); err != nil {
		m.log.WithError(err).WithField("user_id", userID).Error("failed to delete persisted context")
	}
}
