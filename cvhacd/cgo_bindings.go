//go:build vhacd && cgo

// Real cgo implementation over the V-HACD C shim.

package cvhacd

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/vhacd/include
#cgo LDFLAGS: -L${SRCDIR}/../third_party/vhacd/build -lvhacd_c

#include <stdlib.h>
#include <stdint.h>

typedef struct vhacd_params {
	double   concavity;
	double   alpha;
	double   beta;
	double   gamma;
	double   delta;
	double   min_volume_per_ch;
	uint32_t resolution;
	uint32_t max_num_vertices_per_ch;
	uint32_t max_convex_hulls;
	int32_t  depth;
	int32_t  plane_downsampling;
	int32_t  convexhull_downsampling;
	int32_t  pca;
	int32_t  mode;
	int32_t  convexhull_approximation;
	int32_t  ocl_acceleration;
	int32_t  project_hull_vertices;
} vhacd_params;

typedef struct vhacd_hull {
	const double*  points;
	uint32_t       n_points;
	const int32_t* triangles;
	uint32_t       n_triangles;
	double         volume;
	double         center[3];
} vhacd_hull;

typedef void* vhacd_handle;

extern vhacd_handle vhacd_create(void);
extern int      vhacd_compute(vhacd_handle h, const float* points, uint32_t stride_points, uint32_t count_points,
                              const int32_t* triangles, uint32_t stride_triangles, uint32_t count_triangles,
                              const vhacd_params* params);
extern void     vhacd_cancel(vhacd_handle h);
extern uint32_t vhacd_n_hulls(vhacd_handle h);
extern void     vhacd_get_hull(vhacd_handle h, uint32_t index, vhacd_hull* out);
extern void     vhacd_clean(vhacd_handle h);
extern void     vhacd_release(vhacd_handle h);
*/
import "C"

import (
	"unsafe"

	"hullbridge/native"
)

const available = true

// cBuffer is a block on the C heap.
type cBuffer struct {
	ptr   unsafe.Pointer
	n     int
	freed bool
}

func (b *cBuffer) Len() int { return b.n }

func (b *cBuffer) Free() error {
	if b.freed {
		return native.ErrBufferFreed
	}
	b.freed = true
	C.free(b.ptr)
	b.ptr = nil
	return nil
}

type cFloats struct{ cBuffer }

func (b *cFloats) CopyIn(src []float32) error {
	if b.freed {
		return native.ErrBufferFreed
	}
	if len(src) > b.n {
		return native.ErrBufferOverflow
	}
	copy(unsafe.Slice((*float32)(b.ptr), b.n), src)
	return nil
}

type cInts struct{ cBuffer }

func (b *cInts) CopyIn(src []int32) error {
	if b.freed {
		return native.ErrBufferFreed
	}
	if len(src) > b.n {
		return native.ErrBufferOverflow
	}
	copy(unsafe.Slice((*int32)(b.ptr), b.n), src)
	return nil
}

func cAlloc(n int) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, native.ErrOutOfMemory
	}
	// malloc(0) may legally return NULL.
	size := C.size_t(n * 4)
	if size == 0 {
		size = 4
	}
	ptr := C.malloc(size)
	if ptr == nil {
		return nil, native.ErrOutOfMemory
	}
	return ptr, nil
}

type engine struct {
	handle C.vhacd_handle
}

func newEngine() (native.Engine, error) {
	h := C.vhacd_create()
	if h == nil {
		return nil, native.ErrOutOfMemory
	}
	return &engine{handle: h}, nil
}

func (e *engine) AllocFloats(n int) (native.FloatBuffer, error) {
	ptr, err := cAlloc(n)
	if err != nil {
		return nil, err
	}
	return &cFloats{cBuffer{ptr: ptr, n: n}}, nil
}

func (e *engine) AllocInts(n int) (native.IntBuffer, error) {
	ptr, err := cAlloc(n)
	if err != nil {
		return nil, err
	}
	return &cInts{cBuffer{ptr: ptr, n: n}}, nil
}

// Compute hands the buffers to the library. Progress and log callbacks are
// not forwarded across cgo.
func (e *engine) Compute(points native.FloatBuffer, stridePoints, countPoints uint32,
	triangles native.IntBuffer, strideTriangles, countTriangles uint32,
	params *native.Parameters) (bool, error) {

	pts, ok := points.(*cFloats)
	if !ok || pts.freed {
		return false, ErrForeignBuffer
	}
	tris, ok := triangles.(*cInts)
	if !ok || tris.freed {
		return false, ErrForeignBuffer
	}

	cp := C.vhacd_params{
		concavity:                C.double(params.Concavity),
		alpha:                    C.double(params.Alpha),
		beta:                     C.double(params.Beta),
		gamma:                    C.double(params.Gamma),
		delta:                    C.double(params.Delta),
		min_volume_per_ch:        C.double(params.MinVolumePerCH),
		resolution:               C.uint32_t(params.Resolution),
		max_num_vertices_per_ch:  C.uint32_t(params.MaxNumVerticesPerCH),
		max_convex_hulls:         C.uint32_t(params.MaxConvexHulls),
		depth:                    C.int32_t(params.Depth),
		plane_downsampling:       C.int32_t(params.PlaneDownsampling),
		convexhull_downsampling:  C.int32_t(params.ConvexhullDownsampling),
		pca:                      C.int32_t(params.PCA),
		mode:                     C.int32_t(params.Mode),
		convexhull_approximation: C.int32_t(params.ConvexhullApproximation),
		ocl_acceleration:         C.int32_t(params.OCLAcceleration),
		project_hull_vertices:    C.int32_t(params.ProjectHullVertices),
	}

	ret := C.vhacd_compute(e.handle,
		(*C.float)(pts.ptr), C.uint32_t(stridePoints), C.uint32_t(countPoints),
		(*C.int32_t)(tris.ptr), C.uint32_t(strideTriangles), C.uint32_t(countTriangles),
		&cp)
	return ret != 0, nil
}

// Cancel is safe from any goroutine; the library polls an atomic flag.
func (e *engine) Cancel() {
	C.vhacd_cancel(e.handle)
}

func (e *engine) NConvexHulls() uint32 {
	return uint32(C.vhacd_n_hulls(e.handle))
}

func (e *engine) ConvexHull(index uint32, out *native.Hull) error {
	var h C.vhacd_hull
	C.vhacd_get_hull(e.handle, C.uint32_t(index), &h)

	np := int(h.n_points) * 3
	nt := int(h.n_triangles) * 3
	out.Points = make([]float64, np)
	out.Triangles = make([]int32, nt)
	if np > 0 {
		copy(out.Points, unsafe.Slice((*float64)(unsafe.Pointer(h.points)), np))
	}
	if nt > 0 {
		copy(out.Triangles, unsafe.Slice((*int32)(unsafe.Pointer(h.triangles)), nt))
	}
	out.Volume = float64(h.volume)
	for i := 0; i < 3; i++ {
		out.Center[i] = float64(h.center[i])
	}
	return nil
}

func (e *engine) Clean() {
	C.vhacd_clean(e.handle)
}

func (e *engine) Release() error {
	if e.handle == nil {
		return nil
	}
	C.vhacd_release(e.handle)
	e.handle = nil
	return nil
}
