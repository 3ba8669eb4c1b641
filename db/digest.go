package db

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"hullbridge/vhacd"
)

// MeshDigest hashes the geometry a decomposition actually reads: the first
// three values of every point and triangle record. Stride padding does not
// affect the digest.
func MeshDigest(m vhacd.Mesh) string {
	h := sha256.New()
	var buf [4]byte

	binary.LittleEndian.PutUint32(buf[:], m.CountPoints)
	h.Write(buf[:])
	for i := uint32(0); i < m.CountPoints; i++ {
		base := uint64(i) * uint64(m.StridePoints)
		for k := uint64(0); k < 3; k++ {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(m.Points[base+k]))
			h.Write(buf[:])
		}
	}

	binary.LittleEndian.PutUint32(buf[:], m.CountTriangles)
	h.Write(buf[:])
	for i := uint32(0); i < m.CountTriangles; i++ {
		base := uint64(i) * uint64(m.StrideTriangles)
		for k := uint64(0); k < 3; k++ {
			binary.LittleEndian.PutUint32(buf[:], uint32(m.Triangles[base+k]))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParamsDigest hashes the YAML form of p. Callbacks are excluded.
func ParamsDigest(p vhacd.Parameters) (string, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode parameters: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
