package vhacd

import (
	"fmt"
	"time"
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateCreated State = iota
	StateComputing
	StateCompleted
	StateCancelled
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateComputing:
		return "computing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the result of one Compute. The boolean Compute API reports
// true only for OutcomeCompleted.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) state() State {
	switch o {
	case OutcomeCompleted:
		return StateCompleted
	case OutcomeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}

// Mesh is a caller-owned triangle mesh in flat strided form. Only the first
// three elements of each record are read.
type Mesh struct {
	Points          []float32
	StridePoints    uint32
	CountPoints     uint32
	Triangles       []int32
	StrideTriangles uint32
	CountTriangles  uint32
}

// NewMesh builds a Mesh with stride 3 from packed xyz and index triples.
func NewMesh(points []float32, triangles []int32) Mesh {
	return Mesh{
		Points:          points,
		StridePoints:    3,
		CountPoints:     uint32(len(points) / 3),
		Triangles:       triangles,
		StrideTriangles: 3,
		CountTriangles:  uint32(len(triangles) / 3),
	}
}

// Validate checks the mesh shape and that every referenced vertex exists.
// Errors wrap ErrInvalidInput.
func (m Mesh) Validate() error {
	switch {
	case m.StridePoints < 3:
		return fmt.Errorf("%w: point stride %d, need at least 3", ErrInvalidInput, m.StridePoints)
	case m.StrideTriangles < 3:
		return fmt.Errorf("%w: triangle stride %d, need at least 3", ErrInvalidInput, m.StrideTriangles)
	case m.CountPoints == 0:
		return fmt.Errorf("%w: no points", ErrInvalidInput)
	case m.CountTriangles == 0:
		return fmt.Errorf("%w: no triangles", ErrInvalidInput)
	case uint64(len(m.Points)) < uint64(m.StridePoints)*uint64(m.CountPoints):
		return fmt.Errorf("%w: %d point values for %d points of stride %d",
			ErrInvalidInput, len(m.Points), m.CountPoints, m.StridePoints)
	case uint64(len(m.Triangles)) < uint64(m.StrideTriangles)*uint64(m.CountTriangles):
		return fmt.Errorf("%w: %d index values for %d triangles of stride %d",
			ErrInvalidInput, len(m.Triangles), m.CountTriangles, m.StrideTriangles)
	}

	for t := uint32(0); t < m.CountTriangles; t++ {
		base := uint64(t) * uint64(m.StrideTriangles)
		for k := uint64(0); k < 3; k++ {
			if v := m.Triangles[base+k]; v < 0 || uint32(v) >= m.CountPoints {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d",
					ErrInvalidInput, t, v, m.CountPoints)
			}
		}
	}
	return nil
}

// ConvexHull is a caller-owned copy of one hull from the result set.
type ConvexHull struct {
	Points    []float64  `yaml:"points"`    // x, y, z triples
	Triangles []int32    `yaml:"triangles"` // vertex index triples
	Volume    float64    `yaml:"volume"`
	Center    [3]float64 `yaml:"center,flow"`
}

func (h *ConvexHull) NPoints() int    { return len(h.Points) / 3 }
func (h *ConvexHull) NTriangles() int { return len(h.Triangles) / 3 }

// Validate reports whether the hull has geometry and its indices reference
// existing vertices.
func (h *ConvexHull) Validate() error {
	if h.NPoints() == 0 || h.NTriangles() == 0 {
		return fmt.Errorf("hull has %d points and %d triangles", h.NPoints(), h.NTriangles())
	}
	if len(h.Points)%3 != 0 || len(h.Triangles)%3 != 0 {
		return fmt.Errorf("hull buffers not multiples of 3 (%d, %d)", len(h.Points), len(h.Triangles))
	}
	for i, v := range h.Triangles {
		if v < 0 || int(v) >= h.NPoints() {
			return fmt.Errorf("index %d references vertex %d of %d", i, v, h.NPoints())
		}
	}
	return nil
}

// ComputeReport summarizes one Compute for observers.
type ComputeReport struct {
	EngineID       uint64
	Outcome        Outcome
	Duration       time.Duration
	CountPoints    uint32
	CountTriangles uint32
	Hulls          uint32
	Err            error
}
