package vhacd

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by Engine wraps exactly one of them.
var (
	ErrInvalidInput      = errors.New("vhacd: invalid input")
	ErrInvalidState      = errors.New("vhacd: invalid engine state")
	ErrIndexOutOfRange   = errors.New("vhacd: hull index out of range")
	ErrResourceExhausted = errors.New("vhacd: resource exhausted")
	ErrEngineUnavailable = errors.New("vhacd: engine unavailable")
	ErrNativeFault       = errors.New("vhacd: native engine fault")
)

// EngineError describes a rejected or failed Engine operation.
type EngineError struct {
	Op      string // Engine method, e.g. "Compute"
	State   State  // engine state when the operation was attempted
	Message string
	Err     error // sentinel, possibly wrapping a backend error
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s (%s, state %s)", e.Err, e.Message, e.Op, e.State)
	}
	return fmt.Sprintf("%v (%s, state %s)", e.Err, e.Op, e.State)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func newError(op string, state State, sentinel error, format string, args ...any) *EngineError {
	return &EngineError{
		Op:      op,
		State:   state,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// wrapError keeps cause reachable through errors.Is and errors.As while
// classifying it under sentinel.
func wrapError(op string, state State, sentinel, cause error) *EngineError {
	err := sentinel
	if cause != nil && !errors.Is(cause, sentinel) {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	} else if cause != nil {
		err = cause
	}
	return &EngineError{Op: op, State: state, Err: err}
}
