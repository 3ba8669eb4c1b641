package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hullbridge/core"
)

type shutdownEntry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs first
	seq      int // registration order breaks ties
}

// ShutdownRegistry holds cleanup handlers ordered by priority.
//
//	registry.Register("engine", PriorityEngine, ReleaseEngine(logger, engine))
//	registry.Register("database", PriorityDatabase, CloseDatabase(logger, database))
//	errs := registry.Shutdown(ctx)
type ShutdownRegistry struct {
	mu      sync.Mutex
	entries []shutdownEntry
	closed  bool
}

// Handler priorities used by the CLI.
const (
	PriorityEngine   = 10 // release native handles first
	PriorityOutput   = 20 // remove partial output files
	PriorityMetrics  = 25
	PriorityDatabase = 30
	PriorityLogger   = 90 // flush last so earlier handlers are logged
)

// NewShutdownRegistry creates an empty registry.
func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{}
}

// Register adds fn. Registration after Shutdown is ignored.
func (r *ShutdownRegistry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || fn == nil {
		return
	}
	r.entries = append(r.entries, shutdownEntry{
		name:     name,
		fn:       fn,
		priority: priority,
		seq:      len(r.entries),
	})
}

func (r *ShutdownRegistry) sorted() []shutdownEntry {
	out := make([]shutdownEntry, len(r.entries))
	copy(out, r.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Shutdown runs every handler once, in order, even when some fail. Errors
// are prefixed with the handler name. A second call returns nil.
func (r *ShutdownRegistry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if err := entry.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.name, err))
		}
	}
	return errs
}

// Names returns handler names in execution order.
func (r *ShutdownRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.sorted()
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.name
	}
	return names
}

// Count returns the number of registered handlers.
func (r *ShutdownRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Shutdown has run.
func (r *ShutdownRegistry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
