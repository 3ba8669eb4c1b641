package vhacd

import (
	"fmt"
	"sync"
	"unsafe"

	"hullbridge/native"

	"go.uber.org/multierr"
)

// DefaultMaxBufferBytes bounds the combined size of the two marshaled
// buffers of one Compute.
const DefaultMaxBufferBytes int64 = 1 << 30

const (
	pointBytes = int64(unsafe.Sizeof(float32(0)))
	indexBytes = int64(unsafe.Sizeof(int32(0)))
)

// marshaledMesh holds engine-owned copies of a mesh for one Compute.
type marshaledMesh struct {
	points    native.FloatBuffer
	triangles native.IntBuffer

	once sync.Once
	err  error
}

// marshalBytes is the memory a mesh needs on the engine side.
func marshalBytes(m Mesh) int64 {
	return int64(len(m.Points))*pointBytes + int64(len(m.Triangles))*indexBytes
}

// marshalMesh copies the caller's sequences into buffers from alloc. On any
// error nothing stays allocated.
func marshalMesh(alloc native.Allocator, m Mesh, budget int64) (*marshaledMesh, error) {
	if need := marshalBytes(m); budget > 0 && need > budget {
		return nil, fmt.Errorf("%w: mesh needs %d bytes, budget is %d", ErrResourceExhausted, need, budget)
	}

	points, err := alloc.AllocFloats(len(m.Points))
	if err != nil {
		return nil, fmt.Errorf("%w: point buffer: %w", ErrResourceExhausted, err)
	}
	triangles, err := alloc.AllocInts(len(m.Triangles))
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("%w: triangle buffer: %w", ErrResourceExhausted, err),
			points.Free(),
		)
	}

	mm := &marshaledMesh{points: points, triangles: triangles}
	if err := points.CopyIn(m.Points); err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: copy points: %w", ErrNativeFault, err), mm.release())
	}
	if err := triangles.CopyIn(m.Triangles); err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: copy triangles: %w", ErrNativeFault, err), mm.release())
	}
	return mm, nil
}

// release frees both buffers. Only the first call frees; later calls
// return the first result.
func (mm *marshaledMesh) release() error {
	mm.once.Do(func() {
		mm.err = multierr.Combine(mm.points.Free(), mm.triangles.Free())
	})
	return mm.err
}
