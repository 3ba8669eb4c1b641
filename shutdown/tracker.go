// Package shutdown coordinates signal handling for long decompositions:
// the first SIGINT/SIGTERM cancels in-flight work, registered cleanup then
// releases engines, closes the history database and flushes logs.
package shutdown

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrTrackerClosed is returned when starting an operation after Close.
var ErrTrackerClosed = errors.New("operation tracker is closed")

// ErrWaitTimeout is returned when Wait gives up before all operations end.
var ErrWaitTimeout = errors.New("wait timeout: operations did not complete in time")

// Operation is a tracked unit of work, typically one Compute call.
type Operation struct {
	ID      uint64
	Name    string
	Started time.Time

	cancel func()
}

// OperationTracker records in-flight operations together with the function
// that cancels each one, so a signal can stop them and shutdown can wait.
//
//	op, err := tracker.Start("decompose cube.obj", func() { engine.Cancel() })
//	if err != nil {
//	    return err
//	}
//	defer tracker.Done(op)
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	nextID uint64
	active map[uint64]*Operation
	closed bool
}

// NewOperationTracker creates an open tracker.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{active: make(map[uint64]*Operation)}
}

// Start registers an operation. cancel may be nil. Every successful Start
// must be paired with exactly one Done.
func (t *OperationTracker) Start(name string, cancel func()) (*Operation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTrackerClosed
	}
	t.nextID++
	op := &Operation{ID: t.nextID, Name: name, Started: time.Now(), cancel: cancel}
	t.active[op.ID] = op
	t.wg.Add(1)
	return op, nil
}

// Done marks op finished.
func (t *OperationTracker) Done(op *Operation) {
	if op == nil {
		return
	}
	t.mu.Lock()
	_, ok := t.active[op.ID]
	delete(t.active, op.ID)
	t.mu.Unlock()
	if ok {
		t.wg.Done()
	}
}

// CancelAll invokes the cancel function of every active operation and
// returns how many were signalled. Cancel functions run outside the lock.
func (t *OperationTracker) CancelAll() int {
	t.mu.Lock()
	cancels := make([]func(), 0, len(t.active))
	for _, op := range t.active {
		if op.cancel != nil {
			cancels = append(cancels, op.cancel)
		}
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// Wait blocks until no operation is active or timeout elapses.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// Close rejects further Start calls. Active operations keep running.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ActiveCount returns the number of active operations.
func (t *OperationTracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// ActiveNames lists active operations, oldest first.
func (t *OperationTracker) ActiveNames() []string {
	t.mu.Lock()
	ops := make([]*Operation, 0, len(t.active))
	for _, op := range t.active {
		ops = append(ops, op)
	}
	t.mu.Unlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name
	}
	return names
}

// IsClosed reports whether Close has been called.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
