package metrics

import (
	"sync"
	"time"
)

// Store keeps the most recent records in a ring buffer and running totals
// over all of them.
//
//	store := NewStore(DefaultStoreConfig())
//	store.Record(rec)
//	summary := store.Summary()
type Store struct {
	mu sync.RWMutex

	history []DecompositionRecord
	cap     int
	head    int
	size    int

	total     int64
	completed int64
	cancelled int64
	failed    int64
	cacheHits int64
	byBackend map[string]*backendStats
}

type backendStats struct {
	runs          int64
	completed     int64
	totalDuration time.Duration
	totalHulls    int64
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// HistoryCapacity is the number of records retained for Recent
	HistoryCapacity int
}

// DefaultStoreConfig returns a 100-record history.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{HistoryCapacity: 100}
}

// NewStore creates an empty Store. A capacity below 1 becomes 100.
func NewStore(config StoreConfig) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		history:   make([]DecompositionRecord, capacity),
		cap:       capacity,
		byBackend: make(map[string]*backendStats),
	}
}

// Record implements Collector.
func (s *Store) Record(rec DecompositionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = rec
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.total++
	switch rec.Outcome {
	case OutcomeCompleted:
		s.completed++
	case OutcomeCancelled:
		s.cancelled++
	case OutcomeFailed:
		s.failed++
	}
	if rec.Cached {
		s.cacheHits++
	}

	stats, ok := s.byBackend[rec.Backend]
	if !ok {
		stats = &backendStats{}
		s.byBackend[rec.Backend] = stats
	}
	stats.runs++
	if rec.Outcome == OutcomeCompleted {
		stats.completed++
	}
	stats.totalDuration += rec.Duration
	stats.totalHulls += int64(rec.Hulls)
}

// Summary implements Collector.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		TotalRuns: s.total,
		Completed: s.completed,
		Cancelled: s.cancelled,
		Failed:    s.failed,
		CacheHits: s.cacheHits,
		ByBackend: make(map[string]*BackendStats, len(s.byBackend)),
	}
	for backend, stats := range s.byBackend {
		out := &BackendStats{Runs: stats.runs}
		if stats.runs > 0 {
			out.SuccessRate = float64(stats.completed) / float64(stats.runs) * 100
			out.AvgDuration = stats.totalDuration / time.Duration(stats.runs)
			out.AvgHulls = float64(stats.totalHulls) / float64(stats.runs)
		}
		sum.ByBackend[backend] = out
	}
	return sum
}

// Recent implements Collector.
func (s *Store) Recent(limit int) []DecompositionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []DecompositionRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	result := make([]DecompositionRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - 1 - i + s.cap) % s.cap
		result[i] = s.history[idx]
	}
	return result
}

var _ Collector = (*Store)(nil)
