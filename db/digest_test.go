package db

import (
	"testing"

	"hullbridge/native"
	"hullbridge/vhacd"
)

func TestMeshDigest(t *testing.T) {
	packed := vhacd.NewMesh(
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]int32{0, 1, 2},
	)
	strided := vhacd.Mesh{
		Points:          []float32{0, 0, 0, 9, 1, 0, 0, 9, 0, 1, 0, 9},
		StridePoints:    4,
		CountPoints:     3,
		Triangles:       []int32{0, 1, 2, 7},
		StrideTriangles: 4,
		CountTriangles:  1,
	}
	moved := vhacd.NewMesh(
		[]float32{0, 0, 0, 1, 0, 0, 0, 2, 0},
		[]int32{0, 1, 2},
	)

	if MeshDigest(packed) != MeshDigest(strided) {
		t.Error("stride padding changed the digest")
	}
	if MeshDigest(packed) == MeshDigest(moved) {
		t.Error("different geometry produced the same digest")
	}
	if len(MeshDigest(packed)) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(MeshDigest(packed)))
	}
}

func TestParamsDigest(t *testing.T) {
	a := vhacd.DefaultParameters()
	b := vhacd.DefaultParameters()
	b.Callback = func(native.Progress) {}

	da, err := ParamsDigest(a)
	if err != nil {
		t.Fatalf("ParamsDigest() error = %v", err)
	}
	dbb, err := ParamsDigest(b)
	if err != nil {
		t.Fatalf("ParamsDigest() error = %v", err)
	}
	if da != dbb {
		t.Error("callback changed the digest")
	}

	b.Concavity = a.Concavity / 2
	dc, _ := ParamsDigest(b)
	if dc == da {
		t.Error("concavity change did not change the digest")
	}
}
