package wasmengine

import (
	"encoding/binary"
	"math"

	"hullbridge/native"
)

// paramsBlockSize is the size in bytes of an encoded parameter block.
const paramsBlockSize = 6*8 + 11*4

// encodeParameters lays p out the way the guest reads it: six float64
// fields (Concavity, Alpha, Beta, Gamma, Delta, MinVolumePerCH) followed by
// eleven 32-bit integers (Resolution, MaxNumVerticesPerCH, MaxConvexHulls,
// Depth, PlaneDownsampling, ConvexhullDownsampling, PCA, Mode,
// ConvexhullApproximation, OCLAcceleration, ProjectHullVertices).
// Callbacks never cross; the host imports stand in for them.
func encodeParameters(p *native.Parameters) []byte {
	buf := make([]byte, paramsBlockSize)
	le := binary.LittleEndian

	floats := []float64{p.Concavity, p.Alpha, p.Beta, p.Gamma, p.Delta, p.MinVolumePerCH}
	for i, f := range floats {
		le.PutUint64(buf[i*8:], math.Float64bits(f))
	}

	ints := []uint32{
		p.Resolution,
		p.MaxNumVerticesPerCH,
		p.MaxConvexHulls,
		uint32(p.Depth),
		uint32(p.PlaneDownsampling),
		uint32(p.ConvexhullDownsampling),
		uint32(p.PCA),
		uint32(p.Mode),
		uint32(p.ConvexhullApproximation),
		uint32(p.OCLAcceleration),
		uint32(p.ProjectHullVertices),
	}
	off := len(floats) * 8
	for i, v := range ints {
		le.PutUint32(buf[off+i*4:], v)
	}
	return buf
}
