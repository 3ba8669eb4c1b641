package hullengine

import "errors"

var (
	// ErrDegenerate reports a point set with no volume (fewer than four
	// points, or all points coplanar).
	ErrDegenerate = errors.New("hullengine: degenerate point set")

	// ErrForeignBuffer is returned when Compute receives buffers that were
	// not allocated by this engine.
	ErrForeignBuffer = errors.New("hullengine: buffer not allocated by this engine")

	errCancelled = errors.New("hullengine: cancelled")
)
