package conversation

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/weilintsai/tutorbot-go/internal/logger"
	"github.com/weilintsai/tutorbot-go/internal/nlu"
)

// Config tunes the two TTL layers of the state store.
type Config struct {
	// ContextTTL expires a user's whole dialogue context. Refreshed on
	// every mutation.
	ContextTTL time.Duration
	// PendingTTL is the shorter window in which a pending task may still
	// absorb supplements.
	PendingTTL time.Duration
	// CleanupPeriod is how often expired contexts are evicted.
	CleanupPeriod time.Duration
	// QueryTTL bounds how long a queried student stays pinned as the
	// default subject of follow-up questions.
	QueryTTL time.Duration
	// MaxRecentEntities bounds the remembered students/courses per user.
	MaxRecentEntities int
}

func (c *Config) applyDefaults() {
	if c.ContextTTL <= 0 {
		c.ContextTTL = 30 * time.Minute
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = 2 * time.Minute
	}
	if c.CleanupPeriod <= 0 {
		c.CleanupPeriod = 5 * time.Minute
	}
	if c.QueryTTL <= 0 {
		c.QueryTTL = 10 * time.Minute
	}
	if c.MaxRecentEntities <= 0 {
		c.MaxRecentEntities = 5
	}
}

// Manager owns all per-user dialogue state. Mutations for the same user are
// serialized through a per-user mutex, so a read-modify-write of the pending
// task can never interleave with another turn of the same user.
type Manager struct {
	cache *gocache.Cache
	locks sync.Map // userID -> *sync.Mutex
	store Store    // optional write-through persistence
	cfg   Config
	log   *logger.Logger
}

// NewManager creates a manager with the given TTL configuration.
func NewManager(cfg Config, log *logger.Logger) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cache: gocache.New(cfg.ContextTTL, cfg.CleanupPeriod),
		cfg:   cfg,
		log:   log,
	}
}

// AttachStore enables write-through persistence. Must be called before the
// manager starts serving turns.
func (m *Manager) AttachStore(store Store) {
	m.store = store
}

func (m *Manager) lockFor(userID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// getLocked returns the live context for userID, consulting the persistent
// store on a cache miss. Caller must hold the user's lock.
func (m *Manager) getLocked(userID string, now time.Time) *Context {
	if v, ok := m.cache.Get(userID); ok {
		return v.(*Context)
	}
	return m.restore(userID, now)
}

// update runs fn against the user's live context under the per-user lock,
// creating the context on first touch and refreshing the context TTL.
func (m *Manager) update(userID string, fn func(*Context)) {
	mu := m.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now()
	ctx := m.getLocked(userID, now)
	if ctx == nil {
		ctx = &Context{UserID: userID, CreatedAt: now}
	}
	fn(ctx)
	ctx.UpdatedAt = now
	m.cache.Set(userID, ctx, m.cfg.ContextTTL)
	m.persist(ctx)
}

// Get returns a copy of the user's context, or nil when none exists.
func (m *Manager) Get(userID string) *Context {
	mu := m.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	c := m.getLocked(userID, time.Now())
	return c.clone()
}

// BeginPending stores a new pending task together with its expected-input
// queue. Both are always written as one unit.
func (m *Manager) BeginPending(userID string, intent nlu.Intent, slots nlu.SlotSet, now time.Time) {
	missing := nlu.MissingFields(intent, slots)
	m.update(userID, func(c *Context) {
		c.Pending = &PendingTask{
			Intent:    intent,
			Slots:     slots.Clone(),
			Missing:   missing,
			Status:    StatusAwaitingInput,
			CreatedAt: now,
		}
		c.Expecting = expectingFor(missing)
		c.LastIntent = intent
	})
}

// MergePending folds supplement slots into the pending task and recomputes
// the missing fields and expected inputs. No-op without a pending task.
func (m *Manager) MergePending(userID string, slots nlu.SlotSet) {
	m.update(userID, func(c *Context) {
		if c.Pending == nil {
			return
		}
		c.Pending.Slots.MergeMissing(slots)
		c.Pending.Missing = nlu.MissingFields(c.Pending.Intent, c.Pending.Slots)
		c.Expecting = expectingFor(c.Pending.Missing)
	})
}

// ClearPending atomically drops the pending task and the expected-input
// queue. One never survives without the other.
func (m *Manager) ClearPending(userID string) {
	m.update(userID, func(c *Context) {
		c.Pending = nil
		c.Expecting = nil
		c.AwaitingConfirmation = false
	})
}

// RecordAction remembers an executed task and ends any pending state tied
// to it.
func (m *Manager) RecordAction(userID string, intent nlu.Intent, slots nlu.SlotSet, now time.Time) {
	m.update(userID, func(c *Context) {
		c.LastAction = &ActionRecord{Intent: intent, Slots: slots.Clone(), ExecutedAt: now}
		c.LastIntent = intent
		c.Pending = nil
		c.Expecting = nil
		c.AwaitingConfirmation = false
	})
}

// MarkExecutionFailed rolls a completed task back into a retryable pending
// state. Slots are preserved so the user can correct and resubmit without
// re-entering everything; the pending window restarts from now.
func (m *Manager) MarkExecutionFailed(userID string, intent nlu.Intent, slots nlu.SlotSet, cause string, now time.Time) {
	m.update(userID, func(c *Context) {
		retries := 0
		if c.Pending != nil && c.Pending.Status == StatusExecutionFailed {
			retries = c.Pending.RetryCount
		}
		c.Pending = &PendingTask{
			Intent:     intent,
			Slots:      slots.Clone(),
			Missing:    nlu.MissingFields(intent, slots),
			Status:     StatusExecutionFailed,
			RetryCount: retries + 1,
			LastError:  cause,
			CreatedAt:  now,
		}
		c.Expecting = expectingFor(c.Pending.Missing)
		c.LastIntent = intent
	})
}

// SetAwaitingConfirmation toggles the confirm-prompt marker.
func (m *Manager) SetAwaitingConfirmation(userID string, v bool) {
	m.update(userID, func(c *Context) {
		c.AwaitingConfirmation = v
	})
}

// SetQueryStudent pins the student of an active query session. The pin
// expires after QueryTTL so a stale query does not keep filling the
// subject of unrelated turns an afternoon later.
func (m *Manager) SetQueryStudent(userID, name string) {
	m.update(userID, func(c *Context) {
		c.QueryStudent = name
		c.QueryStudentAt = time.Now()
	})
}

// NoteEntities records entities mentioned this turn for later hints.
func (m *Manager) NoteEntities(userID string, slots nlu.SlotSet) {
	student, hasStudent := slots.Get(nlu.SlotStudentName)
	course, hasCourse := slots.Get(nlu.SlotCourseName)
	if !hasStudent && !hasCourse {
		return
	}
	m.update(userID, func(c *Context) {
		if hasStudent {
			c.Students = appendRecent(c.Students, student, m.cfg.MaxRecentEntities)
		}
		if hasCourse {
			c.Courses = appendRecent(c.Courses, course, m.cfg.MaxRecentEntities)
		}
	})
}

// Snapshot assembles the read-only pending view for one classification turn.
// An expired pending task is dropped here, atomically with its expecting
// queue, and reported as absent.
func (m *Manager) Snapshot(userID string, now time.Time) *nlu.PendingSnapshot {
	mu := m.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	c := m.getLocked(userID, now)
	if c == nil {
		return nil
	}

	snap := &nlu.PendingSnapshot{
		HasRecentAction:      c.LastAction != nil,
		AwaitingConfirmation: c.AwaitingConfirmation,
	}
	if c.Pending != nil {
		age := now.Sub(c.Pending.CreatedAt)
		if age > m.cfg.PendingTTL {
			c.Pending = nil
			c.Expecting = nil
			m.cache.Set(userID, c, m.cfg.ContextTTL)
			m.persist(c)
			return snap
		}
		snap.Intent = c.Pending.Intent
		snap.Slots = c.Pending.Slots.Clone()
		snap.Missing = append([]nlu.SlotKey(nil), c.Pending.Missing...)
		snap.Expecting = append([]nlu.ExpectType(nil), c.Expecting...)
		snap.Age = age
		snap.ExecutionFailed = c.Pending.Status == StatusExecutionFailed
	}
	return snap
}

// Hints returns the context entities extraction may consult. An expired
// query pin is dropped from stored state here, not just from the view.
func (m *Manager) Hints(userID string) nlu.ContextHints {
	c := m.Get(userID)
	if c == nil {
		return nlu.ContextHints{}
	}
	query := c.QueryStudent
	if query != "" && time.Since(c.QueryStudentAt) > m.cfg.QueryTTL {
		m.update(userID, func(c *Context) {
			c.QueryStudent = ""
			c.QueryStudentAt = time.Time{}
		})
		query = ""
	}
	return nlu.ContextHints{
		Students:     c.Students,
		Courses:      c.Courses,
		QueryStudent: query,
	}
}

// Reset drops a user's entire context.
func (m *Manager) Reset(userID string) {
	mu := m.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()
	m.cache.Delete(userID)
	m.dropPersisted(userID)
}

// ActiveUsers reports how many contexts are currently live.
func (m *Manager) ActiveUsers() int {
	return m.cache.ItemCount()
}
