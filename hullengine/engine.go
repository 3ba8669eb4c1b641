// Package hullengine is an in-process decomposition engine written in Go.
//
// It splits the input mesh into connected components and wraps each in its
// convex hull, then applies the hull-count, hull-volume and vertex-count
// limits of the parameter block. Voxel and tetrahedron ACD settings are
// accepted and ignored. It serves as the default backend and as the engine
// the boundary layer is tested against.
package hullengine

import (
	"fmt"
	"sync/atomic"

	"hullbridge/native"

	"go.uber.org/zap"
)

// Stage names reported through the progress callback.
const (
	StageComponents = "connected components"
	StageHulls      = "hull construction"
	StageMerge      = "hull merging"
	StageReduce     = "vertex reduction"
)

// Engine implements native.Engine on the Go heap.
type Engine struct {
	native.HeapAllocator

	logger     *zap.Logger
	checkpoint func(stage string)

	cancelled atomic.Bool
	released  atomic.Bool
	hulls     []native.Hull
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-run diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithAllocLimit caps the element count of a single buffer allocation.
func WithAllocLimit(elements int) Option {
	return func(e *Engine) {
		e.HeapAllocator.Limit = elements
	}
}

// WithCheckpoint installs a hook invoked at every cancellation checkpoint,
// before the flag is polled.
func WithCheckpoint(fn func(stage string)) Option {
	return func(e *Engine) {
		e.checkpoint = fn
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory returns a native.Factory producing engines configured with opts.
func Factory(opts ...Option) native.Factory {
	return func() (native.Engine, error) {
		return New(opts...), nil
	}
}

func (e *Engine) poll(stage string) bool {
	if e.checkpoint != nil {
		e.checkpoint(stage)
	}
	return e.cancelled.Load()
}

// Compute decomposes the mesh held in points and triangles. Hulls produced
// before a cancellation stay in the result set.
func (e *Engine) Compute(points native.FloatBuffer, stridePoints, countPoints uint32,
	triangles native.IntBuffer, strideTriangles, countTriangles uint32,
	params *native.Parameters) (bool, error) {
	if e.released.Load() {
		return false, fmt.Errorf("hullengine: compute on released engine")
	}
	pb, ok := points.(*native.HeapFloats)
	if !ok {
		return false, ErrForeignBuffer
	}
	tb, ok := triangles.(*native.HeapInts)
	if !ok {
		return false, ErrForeignBuffer
	}
	if params == nil {
		defaults := native.DefaultParameters()
		params = &defaults
	}

	pts, tris, err := readMesh(pb.Values(), stridePoints, countPoints, tb.Values(), strideTriangles, countTriangles)
	if err != nil {
		params.Log(err.Error())
		e.logger.Debug("rejected mesh", zap.Error(err))
		return false, nil
	}

	e.hulls = e.hulls[:0]
	params.Report(native.Progress{StageName: StageComponents})
	if e.poll(StageComponents) {
		return false, nil
	}
	comps := splitComponents(len(pts), tris)
	params.Log(fmt.Sprintf("%d connected components", len(comps)))

	for i, c := range comps {
		if e.poll(StageHulls) {
			e.logger.Debug("cancelled during hull construction", zap.Int("hulls", len(e.hulls)))
			return false, nil
		}
		local, localTris := c.localize(pts)
		h, err := hullOf(local, localTris, func() bool { return e.poll(StageHulls) })
		if err != nil {
			return false, nil
		}
		e.hulls = append(e.hulls, h)
		pct := 100 * float64(i+1) / float64(len(comps))
		params.Report(native.Progress{
			Overall:       0.8 * pct,
			Stage:         pct,
			Operation:     100,
			StageName:     StageHulls,
			OperationName: fmt.Sprintf("component %d", i),
		})
	}

	mergePoll := func() bool { return e.poll(StageMerge) }
	merged, err := mergeSmall(e.hulls, params.MinVolumePerCH, mergePoll)
	e.hulls = merged
	if err != nil {
		return false, nil
	}
	merged, err = limitCount(e.hulls, params.MaxConvexHulls, mergePoll)
	e.hulls = merged
	if err != nil {
		return false, nil
	}
	params.Report(native.Progress{Overall: 90, Stage: 100, Operation: 100, StageName: StageMerge})

	for i := range e.hulls {
		reduced, err := reduceVertices(e.hulls[i], params.MaxNumVerticesPerCH, func() bool { return e.poll(StageReduce) })
		if err != nil {
			return false, nil
		}
		e.hulls[i] = reduced
	}
	params.Report(native.Progress{Overall: 100, Stage: 100, Operation: 100, StageName: StageReduce})
	params.Log(fmt.Sprintf("produced %d convex hulls", len(e.hulls)))

	e.logger.Debug("decomposition finished",
		zap.Int("components", len(comps)),
		zap.Int("hulls", len(e.hulls)),
	)
	return true, nil
}

// Cancel is safe to call concurrently with Compute.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

func (e *Engine) NConvexHulls() uint32 {
	return uint32(len(e.hulls))
}

// ConvexHull deep-copies hull index into out.
func (e *Engine) ConvexHull(index uint32, out *native.Hull) error {
	if index >= uint32(len(e.hulls)) {
		return fmt.Errorf("hullengine: hull %d of %d", index, len(e.hulls))
	}
	h := e.hulls[index]
	out.Points = append([]float64(nil), h.Points...)
	out.Triangles = append([]int32(nil), h.Triangles...)
	out.Volume = h.Volume
	out.Center = h.Center
	return nil
}

// Clean drops the hull set and clears a pending cancellation.
func (e *Engine) Clean() {
	e.hulls = nil
	e.cancelled.Store(false)
}

func (e *Engine) Release() error {
	e.released.Store(true)
	e.hulls = nil
	return nil
}

// readMesh converts strided buffers into points and index triples.
func readMesh(points []float32, strideP, countP uint32, triangles []int32, strideT, countT uint32) ([]vec3, [][3]int, error) {
	if strideP < 3 || strideT < 3 {
		return nil, nil, fmt.Errorf("stride below 3 (points %d, triangles %d)", strideP, strideT)
	}
	if uint64(len(points)) < uint64(strideP)*uint64(countP) || uint64(len(triangles)) < uint64(strideT)*uint64(countT) {
		return nil, nil, fmt.Errorf("buffers shorter than declared counts")
	}

	pts := make([]vec3, countP)
	for i := range pts {
		base := uint32(i) * strideP
		pts[i] = vec3{float64(points[base]), float64(points[base+1]), float64(points[base+2])}
	}
	tris := make([][3]int, countT)
	for i := range tris {
		base := uint32(i) * strideT
		for k := 0; k < 3; k++ {
			v := triangles[base+uint32(k)]
			if v < 0 || uint32(v) >= countP {
				return nil, nil, fmt.Errorf("triangle %d references vertex %d of %d", i, v, countP)
			}
			tris[i][k] = int(v)
		}
	}
	return pts, tris, nil
}

// localize returns the component's points and its triangles re-indexed
// against them.
func (c component) localize(pts []vec3) ([]vec3, [][3]int) {
	index := make(map[int]int, len(c.vertices))
	local := make([]vec3, len(c.vertices))
	for i, v := range c.vertices {
		index[v] = i
		local[i] = pts[v]
	}
	tris := make([][3]int, len(c.triangles))
	for i, t := range c.triangles {
		tris[i] = [3]int{index[t[0]], index[t[1]], index[t[2]]}
	}
	return local, tris
}
