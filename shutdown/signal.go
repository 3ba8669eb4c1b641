package shutdown

import (
	"os"
	"sync"
	"syscall"

	"hullbridge/core"
)

// SignalCounter counts shutdown signals. The first one starts a graceful
// stop; reaching forceAfter calls onForce with the exit code of the first
// signal.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	first      os.Signal
	forceAfter int
	onForce    func(code int)
}

// NewSignalCounter creates a counter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func(code int)) *SignalCounter {
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Increment records sig and returns the new count. onForce runs under the
// lock, so it should exit the process or return quickly.
func (s *SignalCounter) Increment(sig os.Signal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.first == nil {
		s.first = sig
	}
	if s.forceAfter > 0 && s.count >= s.forceAfter && s.onForce != nil {
		s.onForce(ExitCodeForSignal(s.first))
	}
	return s.count
}

// Count returns the number of signals seen.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// First returns the first signal received, or nil.
func (s *SignalCounter) First() os.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}

// Reset clears the count and the recorded signal.
func (s *SignalCounter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
	s.first = nil
}

// ExitCodeForSignal maps a shutdown signal to its 128+n exit code.
// Unknown or nil signals map to core.ExitCodeError.
func ExitCodeForSignal(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeError
	}
}
