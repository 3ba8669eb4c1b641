package native

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrOutOfMemory is returned by allocators that cannot satisfy a request.
	ErrOutOfMemory = errors.New("native: out of memory")

	// ErrBufferFreed is returned when a buffer is used or freed after Free.
	ErrBufferFreed = errors.New("native: buffer already freed")

	// ErrBufferOverflow is returned when CopyIn is given more elements than fit.
	ErrBufferOverflow = errors.New("native: copy exceeds buffer length")
)

// Slices above this length are not returned to the pools.
const maxPooledElements = 1 << 20

// The pools hold slice pointers so Put does not allocate.
var (
	floatPool = sync.Pool{New: func() any { s := make([]float32, 0, 1024); return &s }}
	intPool   = sync.Pool{New: func() any { s := make([]int32, 0, 1024); return &s }}
)

// HeapAllocator allocates buffers on the Go heap. It serves engines that run
// in-process, such as the reference engine. Limit caps the number of
// elements in a single allocation; zero means no cap.
type HeapAllocator struct {
	Limit int
}

// AllocFloats returns a pooled float buffer of length n.
func (a HeapAllocator) AllocFloats(n int) (FloatBuffer, error) {
	if err := a.check(n); err != nil {
		return nil, err
	}
	p := floatPool.Get().(*[]float32)
	if cap(*p) < n {
		*p = make([]float32, n)
	}
	return &HeapFloats{data: (*p)[:n], pooled: p}, nil
}

// AllocInts returns a pooled index buffer of length n.
func (a HeapAllocator) AllocInts(n int) (IntBuffer, error) {
	if err := a.check(n); err != nil {
		return nil, err
	}
	p := intPool.Get().(*[]int32)
	if cap(*p) < n {
		*p = make([]int32, n)
	}
	return &HeapInts{data: (*p)[:n], pooled: p}, nil
}

func (a HeapAllocator) check(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", ErrOutOfMemory, n)
	}
	if a.Limit > 0 && n > a.Limit {
		return fmt.Errorf("%w: %d elements requested, limit %d", ErrOutOfMemory, n, a.Limit)
	}
	return nil
}

// HeapFloats is a FloatBuffer backed by a Go slice.
type HeapFloats struct {
	data   []float32
	pooled *[]float32
}

func (b *HeapFloats) Len() int { return len(b.data) }

// Values exposes the backing slice to in-process engines. Nil after Free.
func (b *HeapFloats) Values() []float32 { return b.data }

func (b *HeapFloats) CopyIn(src []float32) error {
	if b.data == nil {
		return ErrBufferFreed
	}
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: %d > %d", ErrBufferOverflow, len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

func (b *HeapFloats) Free() error {
	if b.data == nil {
		return ErrBufferFreed
	}
	if cap(b.data) <= maxPooledElements {
		*b.pooled = b.data[:0]
		floatPool.Put(b.pooled)
	}
	b.data, b.pooled = nil, nil
	return nil
}

// HeapInts is an IntBuffer backed by a Go slice.
type HeapInts struct {
	data   []int32
	pooled *[]int32
}

func (b *HeapInts) Len() int { return len(b.data) }

// Values exposes the backing slice to in-process engines. Nil after Free.
func (b *HeapInts) Values() []int32 { return b.data }

func (b *HeapInts) CopyIn(src []int32) error {
	if b.data == nil {
		return ErrBufferFreed
	}
	if len(src) > len(b.data) {
		return fmt.Errorf("%w: %d > %d", ErrBufferOverflow, len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

func (b *HeapInts) Free() error {
	if b.data == nil {
		return ErrBufferFreed
	}
	if cap(b.data) <= maxPooledElements {
		*b.pooled = b.data[:0]
		intPool.Put(b.pooled)
	}
	b.data, b.pooled = nil, nil
	return nil
}
