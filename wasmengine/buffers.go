package wasmengine

import (
	"encoding/binary"
	"fmt"
	"math"

	"hullbridge/native"
)

// guestBuffer is a malloc'd block inside one engine's linear memory.
type guestBuffer struct {
	owner *Engine
	ptr   uint32
	n     int
	freed bool
}

func (b *guestBuffer) Len() int { return b.n }

func (b *guestBuffer) Free() error {
	if b.freed {
		return native.ErrBufferFreed
	}
	b.freed = true
	return b.owner.free(b.ptr)
}

func (b *guestBuffer) write(data []byte) error {
	if b.freed {
		return native.ErrBufferFreed
	}
	if !b.owner.mod.Memory().Write(b.ptr, data) {
		return fmt.Errorf("%w: write %d bytes at %#x", ErrGuestFault, len(data), b.ptr)
	}
	return nil
}

type guestFloats struct{ guestBuffer }

func (b *guestFloats) CopyIn(src []float32) error {
	if len(src) > b.n {
		return native.ErrBufferOverflow
	}
	data := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return b.write(data)
}

type guestInts struct{ guestBuffer }

func (b *guestInts) CopyIn(src []int32) error {
	if len(src) > b.n {
		return native.ErrBufferOverflow
	}
	data := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return b.write(data)
}

// AllocFloats reserves n float32 slots in guest memory.
func (e *Engine) AllocFloats(n int) (native.FloatBuffer, error) {
	ptr, err := e.malloc(n * 4)
	if err != nil {
		return nil, err
	}
	return &guestFloats{guestBuffer{owner: e, ptr: ptr, n: n}}, nil
}

// AllocInts reserves n int32 slots in guest memory.
func (e *Engine) AllocInts(n int) (native.IntBuffer, error) {
	ptr, err := e.malloc(n * 4)
	if err != nil {
		return nil, err
	}
	return &guestInts{guestBuffer{owner: e, ptr: ptr, n: n}}, nil
}
