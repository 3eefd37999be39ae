package task

import (
	"sync"
	"time"
)

// ExecutionRecord is one entry of the rolling execution history.
type ExecutionRecord struct {
	Intent     string        `json:"intent"`
	UserID     string        `json:"userId"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	ExecutedAt time.Time     `json:"executedAt"`
}

// IntentStats aggregates outcomes for one intent.
type IntentStats struct {
	Total    int64 `json:"total"`
	Success  int64 `json:"success"`
	Failure  int64 `json:"failure"`
}

// StatsSummary is the JSON shape served by the stats endpoint.
type StatsSummary struct {
	Total     int64                   `json:"total"`
	Success   int64                   `json:"success"`
	Failure   int64                   `json:"failure"`
	ByIntent  map[string]IntentStats  `json:"byIntent"`
	Recent    []ExecutionRecord       `json:"recent"`
}

// Stats counts execution outcomes and keeps a bounded ring of recent
// executions, newest last.
type Stats struct {
	mu       sync.Mutex
	total    int64
	success  int64
	failure  int64
	byIntent map[string]IntentStats
	ring     []ExecutionRecord
	ringPos  int
	ringFull bool
}

const defaultRingSize = 50

// NewStats creates a stats collector with the given history size.
func NewStats(ringSize int) *Stats {
	if ringSize <= 0 {
		ringSize = defaultRingSize
	}
	return &Stats{
		byIntent: make(map[string]IntentStats),
		ring:     make([]ExecutionRecord, ringSize),
	}
}

// Record adds one execution outcome.
func (s *Stats) Record(rec ExecutionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	st := s.byIntent[rec.Intent]
	st.Total++
	if rec.Success {
		s.success++
		st.Success++
	} else {
		s.failure++
		st.Failure++
	}
	s.byIntent[rec.Intent] = st

	s.ring[s.ringPos] = rec
	s.ringPos++
	if s.ringPos == len(s.ring) {
		s.ringPos = 0
		s.ringFull = true
	}
}

// Summary returns a copy of the current counters and history, oldest first.
func (s *Stats) Summary() StatsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	byIntent := make(map[string]IntentStats, len(s.byIntent))
	for k, v := range s.byIntent {
		byIntent[k] = v
	}

	var recent []ExecutionRecord
	if s.ringFull {
		recent = append(recent, s.ring[s.ringPos:]...)
		recent = append(recent, s.ring[:s.ringPos]...)
	} else {
		recent = append(recent, s.ring[:s.ringPos]...)
	}

	return StatsSummary{
		Total:    s.total,
		Success:  s.success,
		Failure:  s.failure,
		ByIntent: byIntent,
		Recent:   recent,
	}
}
