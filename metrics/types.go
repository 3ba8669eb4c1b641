// Package metrics keeps recent decomposition records in memory and exports
// aggregate counters in the Prometheus text format.
package metrics

import "time"

// DecompositionRecord describes one finished Compute call.
type DecompositionRecord struct {
	// ID is the run identifier, shared with the history database when enabled
	ID string `json:"id"`

	// Mesh names the input, usually the file path
	Mesh string `json:"mesh"`

	// Backend is "reference", "wasm" or "native"
	Backend string `json:"backend"`

	// Outcome is "completed", "cancelled" or "failed"
	Outcome string `json:"outcome"`

	Points    uint32 `json:"points"`
	Triangles uint32 `json:"triangles"`
	Hulls     uint32 `json:"hulls"`

	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`

	// Cached is set when the hulls came from the history database
	Cached bool `json:"cached,omitempty"`

	ErrorMsg string `json:"error_msg,omitempty"`
}

// Summary aggregates every record seen by a store.
type Summary struct {
	TotalRuns int64 `json:"total_runs"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Failed    int64 `json:"failed"`
	CacheHits int64 `json:"cache_hits"`

	ByBackend map[string]*BackendStats `json:"by_backend"`
}

// BackendStats holds per-backend figures.
type BackendStats struct {
	Runs        int64         `json:"runs"`
	SuccessRate float64       `json:"success_rate"` // percent, 0-100
	AvgDuration time.Duration `json:"avg_duration"`
	AvgHulls    float64       `json:"avg_hulls"`
}

// Outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)
