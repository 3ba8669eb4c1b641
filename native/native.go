// Package native defines the capability set a convex-decomposition engine
// exposes to the vhacd boundary layer.
//
// An Engine is a single native instance. It is not safe for concurrent use
// except for Cancel, which may be called from any goroutine while Compute is
// running. Buffers handed to Compute come from the engine's own Allocator so
// that backends with a separate address space (wasm guests, C heaps) receive
// memory they can address directly.
package native

// Buffer is a block of engine-addressable memory holding one marshaled
// sequence. Free returns the memory to the engine and must be called once.
type Buffer interface {
	Len() int
	Free() error
}

// FloatBuffer holds point coordinates.
type FloatBuffer interface {
	Buffer
	CopyIn(src []float32) error
}

// IntBuffer holds triangle vertex indices.
type IntBuffer interface {
	Buffer
	CopyIn(src []int32) error
}

// Allocator hands out buffers living in the engine's memory. An allocation
// that cannot be satisfied returns an error and no buffer.
type Allocator interface {
	AllocFloats(n int) (FloatBuffer, error)
	AllocInts(n int) (IntBuffer, error)
}

// Engine is one native decomposition instance.
type Engine interface {
	Allocator

	// Compute runs the decomposition and blocks until it finishes, fails or
	// observes a cancellation. The boolean is the engine's own verdict. A
	// non-nil error reports a fault at the boundary (trap, lost memory) and
	// implies false.
	Compute(points FloatBuffer, stridePoints, countPoints uint32,
		triangles IntBuffer, strideTriangles, countTriangles uint32,
		params *Parameters) (bool, error)

	// Cancel asks a running Compute to stop at its next checkpoint.
	Cancel()

	// NConvexHulls reports the size of the current result set.
	NConvexHulls() uint32

	// ConvexHull copies hull index into out. The caller guarantees
	// index < NConvexHulls().
	ConvexHull(index uint32, out *Hull) error

	// Clean drops the result set and any pending cancellation.
	Clean()

	// Release destroys the instance. No method may be called afterwards.
	Release() error
}

// Factory creates a new engine instance.
type Factory func() (Engine, error)

// Hull is a convex hull as exchanged with an engine.
type Hull struct {
	Points    []float64 // x, y, z triples
	Triangles []int32   // vertex index triples
	Volume    float64
	Center    [3]float64
}

// Progress is reported by engines that support progress callbacks.
// Percentages are in [0, 100].
type Progress struct {
	Overall       float64
	Stage         float64
	Operation     float64
	StageName     string
	OperationName string
}

// ProgressFunc receives progress updates from inside Compute.
type ProgressFunc func(Progress)

// LogFunc receives diagnostic messages from inside Compute.
type LogFunc func(msg string)

// Decomposition modes.
const (
	ModeVoxel       int32 = 0
	ModeTetrahedron int32 = 1
)

// Parameters mirrors the V-HACD parameter block field for field. Booleans are
// carried as int32 (0 or 1) so the block can be laid out identically for C
// and wasm backends.
type Parameters struct {
	Concavity               float64
	Alpha                   float64
	Beta                    float64
	Gamma                   float64
	Delta                   float64
	MinVolumePerCH          float64
	Resolution              uint32
	MaxNumVerticesPerCH     uint32
	MaxConvexHulls          uint32
	Depth                   int32
	PlaneDownsampling       int32
	ConvexhullDownsampling  int32
	PCA                     int32
	Mode                    int32
	ConvexhullApproximation int32
	OCLAcceleration         int32
	ProjectHullVertices     int32

	Callback ProgressFunc
	Logger   LogFunc
}

// DefaultParameters returns the engine defaults.
func DefaultParameters() Parameters {
	return Parameters{
		Concavity:               0.001,
		Alpha:                   0.05,
		Beta:                    0.05,
		Gamma:                   0.0005,
		Delta:                   0.05,
		MinVolumePerCH:          0.0001,
		Resolution:              100000,
		MaxNumVerticesPerCH:     64,
		MaxConvexHulls:          1024,
		Depth:                   20,
		PlaneDownsampling:       4,
		ConvexhullDownsampling:  4,
		PCA:                     0,
		Mode:                    ModeVoxel,
		ConvexhullApproximation: 1,
		OCLAcceleration:         1,
		ProjectHullVertices:     1,
	}
}

// Report forwards p to the callback if one is set.
func (p *Parameters) Report(progress Progress) {
	if p != nil && p.Callback != nil {
		p.Callback(progress)
	}
}

// Log forwards msg to the logger if one is set.
func (p *Parameters) Log(msg string) {
	if p != nil && p.Logger != nil {
		p.Logger(msg)
	}
}
