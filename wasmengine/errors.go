package wasmengine

import "errors"

var (
	// ErrInvalidModule is returned when the supplied bytes do not compile.
	ErrInvalidModule = errors.New("wasmengine: invalid wasm module")

	// ErrMissingExport is returned when the module lacks part of the guest ABI.
	ErrMissingExport = errors.New("wasmengine: missing required export")

	// ErrClosed is returned when the runtime has been closed.
	ErrClosed = errors.New("wasmengine: runtime closed")

	// ErrGuestFault is returned when a guest call traps or the guest reports
	// memory it cannot provide.
	ErrGuestFault = errors.New("wasmengine: guest fault")

	// ErrForeignBuffer is returned when Compute receives a buffer allocated
	// by another engine.
	ErrForeignBuffer = errors.New("wasmengine: buffer not owned by this instance")
)
