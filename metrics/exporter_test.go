package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hullbridge/vhacd"
)

func TestExporter_WriteTextfile(t *testing.T) {
	exp := NewExporter("")
	exp.Record(DecompositionRecord{Backend: "reference", Outcome: OutcomeCompleted, Hulls: 3, Triangles: 12, Duration: 10 * time.Millisecond})
	exp.Record(DecompositionRecord{Backend: "reference", Outcome: OutcomeCancelled, Duration: time.Millisecond})
	exp.Record(DecompositionRecord{Backend: "reference", Outcome: OutcomeCompleted, Hulls: 3, Cached: true})

	path := filepath.Join(t.TempDir(), "hullbridge.prom")
	if err := exp.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)

	wants := []string{
		`hullbridge_decompositions_total{backend="reference",outcome="completed"} 2`,
		`hullbridge_decompositions_total{backend="reference",outcome="cancelled"} 1`,
		`hullbridge_cache_hits_total 1`,
		`hullbridge_decomposition_hulls_count{backend="reference"} 2`,
		`hullbridge_decomposition_duration_seconds_count{backend="reference"} 2`,
		`hullbridge_input_triangles_count 2`,
		`hullbridge_last_decomposition_timestamp_seconds{outcome="completed"}`,
	}
	for _, want := range wants {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q\n%s", want, text)
		}
	}
}

func TestExporter_CustomNamespace(t *testing.T) {
	exp := NewExporter("vhacd")
	exp.Record(DecompositionRecord{Backend: "wasm", Outcome: OutcomeFailed})

	families, err := exp.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "vhacd_decompositions_total" {
			found = true
		}
		if strings.HasPrefix(mf.GetName(), DefaultNamespace) {
			t.Errorf("unexpected default-namespace metric %s", mf.GetName())
		}
	}
	if !found {
		t.Error("vhacd_decompositions_total not gathered")
	}
}

func TestExporter_WriteTextfileBadPath(t *testing.T) {
	exp := NewExporter("")
	if err := exp.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("WriteTextfile() into a missing directory should fail")
	}
}

func TestRecorder(t *testing.T) {
	exp := NewExporter("")
	rec := NewRecorder(nil, exp)
	rec.Record(DecompositionRecord{ID: "r1", Backend: "reference", Outcome: OutcomeCompleted})

	if rec.Summary().TotalRuns != 1 {
		t.Errorf("TotalRuns = %d, want 1", rec.Summary().TotalRuns)
	}
	if got := rec.Recent(1); len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("Recent(1) = %+v", got)
	}
	if rec.Exporter() != exp {
		t.Error("Exporter() did not return the attached exporter")
	}

	noExp := NewRecorder(NewStore(DefaultStoreConfig()), nil)
	noExp.Record(DecompositionRecord{Outcome: OutcomeFailed})
	if noExp.Summary().Failed != 1 {
		t.Error("recorder without exporter lost the record")
	}
}

func TestFromReport(t *testing.T) {
	report := vhacd.ComputeReport{
		Outcome:        vhacd.OutcomeFailed,
		Duration:       time.Second,
		CountPoints:    8,
		CountTriangles: 12,
		Err:            errors.New("boom"),
	}
	rec := FromReport("id-1", "cube.obj", "wasm", report)

	if rec.Outcome != OutcomeFailed || rec.ErrorMsg != "boom" {
		t.Errorf("FromReport() = %+v", rec)
	}
	if rec.Points != 8 || rec.Triangles != 12 || rec.Mesh != "cube.obj" || rec.Backend != "wasm" {
		t.Errorf("FromReport() counts = %+v", rec)
	}
	if rec.StartTime.IsZero() {
		t.Error("StartTime not set")
	}
}
