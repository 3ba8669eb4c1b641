package metrics

// Collector receives decomposition records and answers aggregate queries.
// Implementations must be safe for concurrent use.
type Collector interface {
	// Record adds a finished run.
	Record(rec DecompositionRecord)

	// Summary returns totals over every recorded run.
	Summary() Summary

	// Recent returns up to limit records, newest first.
	Recent(limit int) []DecompositionRecord
}
