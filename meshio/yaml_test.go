package meshio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"hullbridge/vhacd"
)

func TestYAMLHullSetRoundTrip(t *testing.T) {
	set := HullSet{
		Source:  "cube.obj",
		Outcome: vhacd.OutcomeCompleted.String(),
		Hulls: []*vhacd.ConvexHull{{
			Points:    []float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
			Triangles: []int32{0, 2, 1, 0, 1, 3, 1, 2, 3, 0, 3, 2},
			Volume:    1.0 / 6,
			Center:    [3]float64{0.25, 0.25, 0.25},
		}},
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, set); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("center: [0.25, 0.25, 0.25]")) {
		t.Errorf("center not written in flow style:\n%s", buf.String())
	}

	got, err := ReadYAML(&buf)
	if err != nil {
		t.Fatalf("ReadYAML() error = %v", err)
	}
	if !reflect.DeepEqual(got, set) {
		t.Errorf("round trip = %+v, want %+v", got, set)
	}
}

func TestParseParameters(t *testing.T) {
	defaults := vhacd.DefaultParameters()

	tests := []struct {
		name    string
		doc     string
		check   func(t *testing.T, p vhacd.Parameters)
		wantErr error
	}{
		{
			name: "empty keeps defaults",
			doc:  "",
			check: func(t *testing.T, p vhacd.Parameters) {
				if !reflect.DeepEqual(p, defaults) {
					t.Errorf("got %+v, want defaults", p)
				}
			},
		},
		{
			name: "overrides merge over defaults",
			doc:  "resolution: 200000\nmode: tetrahedron\nmax_convex_hulls: 8\n",
			check: func(t *testing.T, p vhacd.Parameters) {
				if p.Resolution != 200000 || p.Mode != vhacd.ModeTetrahedron || p.MaxConvexHulls != 8 {
					t.Errorf("overrides not applied: %+v", p)
				}
				if p.Concavity != defaults.Concavity {
					t.Errorf("Concavity = %v, want default %v", p.Concavity, defaults.Concavity)
				}
			},
		},
		{
			name:    "out of range",
			doc:     "concavity: 3\n",
			wantErr: vhacd.ErrInvalidInput,
		},
		{
			name:    "bad mode",
			doc:     "mode: octree\n",
			wantErr: vhacd.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseParameters([]byte(tt.doc))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseParameters() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParameters() error = %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestParseParametersRejectsUnknownKeys(t *testing.T) {
	if _, err := ParseParameters([]byte("resolutoin: 5\n")); err == nil {
		t.Error("misspelled key should be rejected")
	}
}

func TestLoadParameters(t *testing.T) {
	p, err := LoadParameters("")
	if err != nil || !reflect.DeepEqual(p, vhacd.DefaultParameters()) {
		t.Errorf("LoadParameters(\"\") = %+v, %v; want defaults", p, err)
	}

	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("pca: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = LoadParameters(path)
	if err != nil {
		t.Fatalf("LoadParameters() error = %v", err)
	}
	if !p.PCA {
		t.Error("PCA not loaded from file")
	}
}
