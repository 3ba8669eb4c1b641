package vhacd

import (
	"sync/atomic"

	"hullbridge/native"
)

// fakeNative is a scripted native.Engine that records how the boundary
// layer drives it.
type fakeNative struct {
	failAlloc int // 1-based allocation that fails, 0 for none
	allocs    int
	frees     atomic.Int32
	live      []*fakeBuf

	result      bool
	err         error
	panicMsg    string
	resultHulls []native.Hull
	hulls       []native.Hull

	computeCalls       int
	cleanCalls         int
	cancelCalls        atomic.Int32
	releaseCalls       int
	sawPoints          []float32
	sawTriangles       []int32
	sawParams          *native.Parameters
	freedDuringCompute bool
}

func (f *fakeNative) factory() native.Factory {
	return func() (native.Engine, error) { return f, nil }
}

type fakeBuf struct {
	owner  *fakeNative
	floats []float32
	ints   []int32
	freed  bool
}

func (b *fakeBuf) Len() int {
	if b.floats != nil {
		return len(b.floats)
	}
	return len(b.ints)
}

func (b *fakeBuf) Free() error {
	if b.freed {
		return native.ErrBufferFreed
	}
	b.freed = true
	b.owner.frees.Add(1)
	return nil
}

type fakeFloats struct{ *fakeBuf }

func (b fakeFloats) CopyIn(src []float32) error { copy(b.floats, src); return nil }

type fakeInts struct{ *fakeBuf }

func (b fakeInts) CopyIn(src []int32) error { copy(b.ints, src); return nil }

func (f *fakeNative) alloc() (*fakeBuf, error) {
	f.allocs++
	if f.failAlloc == f.allocs {
		return nil, native.ErrOutOfMemory
	}
	b := &fakeBuf{owner: f}
	f.live = append(f.live, b)
	return b, nil
}

func (f *fakeNative) AllocFloats(n int) (native.FloatBuffer, error) {
	b, err := f.alloc()
	if err != nil {
		return nil, err
	}
	b.floats = make([]float32, n)
	return fakeFloats{b}, nil
}

func (f *fakeNative) AllocInts(n int) (native.IntBuffer, error) {
	b, err := f.alloc()
	if err != nil {
		return nil, err
	}
	b.ints = make([]int32, n)
	return fakeInts{b}, nil
}

func (f *fakeNative) Compute(points native.FloatBuffer, _, _ uint32,
	triangles native.IntBuffer, _, _ uint32, params *native.Parameters) (bool, error) {
	f.computeCalls++
	for _, b := range f.live {
		if b.freed {
			f.freedDuringCompute = true
		}
	}
	f.sawPoints = append([]float32(nil), points.(fakeFloats).floats...)
	f.sawTriangles = append([]int32(nil), triangles.(fakeInts).ints...)
	f.sawParams = params
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.hulls = f.resultHulls
	return f.result, f.err
}

func (f *fakeNative) Cancel() { f.cancelCalls.Add(1) }

func (f *fakeNative) NConvexHulls() uint32 { return uint32(len(f.hulls)) }

func (f *fakeNative) ConvexHull(index uint32, out *native.Hull) error {
	*out = f.hulls[index]
	return nil
}

func (f *fakeNative) Clean() {
	f.cleanCalls++
	f.hulls = nil
}

func (f *fakeNative) Release() error {
	f.releaseCalls++
	return nil
}
