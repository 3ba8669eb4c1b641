package wasmengine

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"hullbridge/native"
	"hullbridge/vhacd"
)

// Unit cube with points padded to a stride of 4.
var (
	cubePoints = []float32{
		0, 0, 0, -1, 1, 0, 0, -1, 1, 1, 0, -1, 0, 1, 0, -1,
		0, 0, 1, -1, 1, 0, 1, -1, 1, 1, 1, -1, 0, 1, 1, -1,
	}
	cubeTriangles = []int32{
		0, 2, 1, 0, 3, 2,
		4, 5, 6, 4, 6, 7,
		0, 1, 5, 0, 5, 4,
		2, 3, 7, 2, 7, 6,
		1, 2, 6, 1, 6, 5,
		0, 4, 7, 0, 7, 3,
	}
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(context.Background(), testGuest(), Config{})
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

func newTestEngine(t *testing.T, rt *Runtime) *Engine {
	t.Helper()
	e, err := rt.NewEngine(context.Background())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(func() { e.Release() })
	return e
}

// computeCube marshals the cube into e and runs Compute.
func computeCube(t *testing.T, e *Engine, params *native.Parameters) (bool, error) {
	t.Helper()
	pts, err := e.AllocFloats(len(cubePoints))
	if err != nil {
		t.Fatalf("AllocFloats() error = %v", err)
	}
	defer pts.Free()
	tris, err := e.AllocInts(len(cubeTriangles))
	if err != nil {
		t.Fatalf("AllocInts() error = %v", err)
	}
	defer tris.Free()

	if err := pts.CopyIn(cubePoints); err != nil {
		t.Fatalf("CopyIn(points) error = %v", err)
	}
	if err := tris.CopyIn(cubeTriangles); err != nil {
		t.Fatalf("CopyIn(triangles) error = %v", err)
	}
	return e.Compute(pts, 4, 8, tris, 3, 12, params)
}

func freeCount(t *testing.T, e *Engine) uint32 {
	t.Helper()
	n, ok := e.mod.Memory().ReadUint32Le(32)
	if !ok {
		t.Fatal("read free counter")
	}
	return n
}

func TestEngineComputeRoundTrip(t *testing.T) {
	e := newTestEngine(t, newTestRuntime(t))

	var progress []native.Progress
	var logs []string
	params := native.DefaultParameters()
	params.Callback = func(p native.Progress) { progress = append(progress, p) }
	params.Logger = func(msg string) { logs = append(logs, msg) }

	ok, err := computeCube(t, e, &params)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if !ok {
		t.Fatal("Compute() = false, want true")
	}

	// The guest echoes Concavity, Alpha and Resolution through vhacd_progress.
	want := native.Progress{Overall: params.Concavity, Stage: params.Alpha, Operation: float64(params.Resolution)}
	if len(progress) != 1 || progress[0] != want {
		t.Errorf("progress = %+v, want [%+v]", progress, want)
	}
	if !reflect.DeepEqual(logs, []string{"guest compute"}) {
		t.Errorf("logs = %q", logs)
	}

	if n := e.NConvexHulls(); n != 1 {
		t.Fatalf("NConvexHulls() = %d, want 1", n)
	}
	var hull native.Hull
	if err := e.ConvexHull(0, &hull); err != nil {
		t.Fatalf("ConvexHull() error = %v", err)
	}

	wantPoints := make([]float64, 0, 24)
	for i := 0; i < 8; i++ {
		for k := 0; k < 3; k++ {
			wantPoints = append(wantPoints, float64(cubePoints[i*4+k]))
		}
	}
	if !reflect.DeepEqual(hull.Points, wantPoints) {
		t.Errorf("Points = %v, want %v", hull.Points, wantPoints)
	}
	if !reflect.DeepEqual(hull.Triangles, cubeTriangles) {
		t.Errorf("Triangles = %v, want %v", hull.Triangles, cubeTriangles)
	}
	if hull.Volume != 1 || hull.Center != [3]float64{0.5, 0.5, 0.5} {
		t.Errorf("Volume = %v, Center = %v", hull.Volume, hull.Center)
	}
}

func TestEngineCancelThroughHostImport(t *testing.T) {
	e := newTestEngine(t, newTestRuntime(t))

	params := native.DefaultParameters()
	params.Callback = func(native.Progress) { e.Cancel() }

	ok, err := computeCube(t, e, &params)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if ok {
		t.Fatal("Compute() = true after Cancel, want false")
	}
	if n := e.NConvexHulls(); n != 0 {
		t.Errorf("NConvexHulls() = %d, want 0", n)
	}

	// Clean clears the pending cancellation.
	e.Clean()
	params.Callback = nil
	ok, err = computeCube(t, e, &params)
	if err != nil || !ok {
		t.Errorf("Compute() after Clean = %v, %v; want true, nil", ok, err)
	}
}

func TestEngineCleanDropsHulls(t *testing.T) {
	e := newTestEngine(t, newTestRuntime(t))
	params := native.DefaultParameters()

	if ok, err := computeCube(t, e, &params); err != nil || !ok {
		t.Fatalf("Compute() = %v, %v", ok, err)
	}
	e.Clean()
	if n := e.NConvexHulls(); n != 0 {
		t.Errorf("NConvexHulls() after Clean = %d, want 0", n)
	}
}

func TestEngineTrapIsGuestFault(t *testing.T) {
	e := newTestEngine(t, newTestRuntime(t))
	params := native.DefaultParameters()
	params.Depth = 99

	ok, err := computeCube(t, e, &params)
	if !errors.Is(err, ErrGuestFault) {
		t.Fatalf("Compute() error = %v, want ErrGuestFault", err)
	}
	if ok {
		t.Error("Compute() = true on trap")
	}
}

func TestEngineBuffers(t *testing.T) {
	rt := newTestRuntime(t)
	e := newTestEngine(t, rt)

	t.Run("guest out of memory", func(t *testing.T) {
		if _, err := e.AllocFloats(20000); !errors.Is(err, native.ErrOutOfMemory) {
			t.Errorf("AllocFloats(20000) error = %v, want ErrOutOfMemory", err)
		}
	})

	t.Run("copy overflow", func(t *testing.T) {
		buf, err := e.AllocInts(2)
		if err != nil {
			t.Fatalf("AllocInts() error = %v", err)
		}
		defer buf.Free()
		if err := buf.CopyIn([]int32{1, 2, 3}); !errors.Is(err, native.ErrBufferOverflow) {
			t.Errorf("CopyIn() error = %v, want ErrBufferOverflow", err)
		}
	})

	t.Run("free once", func(t *testing.T) {
		buf, err := e.AllocFloats(3)
		if err != nil {
			t.Fatalf("AllocFloats() error = %v", err)
		}
		before := freeCount(t, e)
		if err := buf.Free(); err != nil {
			t.Fatalf("Free() error = %v", err)
		}
		if err := buf.Free(); !errors.Is(err, native.ErrBufferFreed) {
			t.Errorf("second Free() error = %v, want ErrBufferFreed", err)
		}
		if err := buf.CopyIn([]float32{1}); !errors.Is(err, native.ErrBufferFreed) {
			t.Errorf("CopyIn() after Free error = %v, want ErrBufferFreed", err)
		}
		if got := freeCount(t, e) - before; got != 1 {
			t.Errorf("guest free called %d times, want 1", got)
		}
	})

	t.Run("copy lands in guest memory", func(t *testing.T) {
		buf, err := e.AllocInts(2)
		if err != nil {
			t.Fatalf("AllocInts() error = %v", err)
		}
		defer buf.Free()
		if err := buf.CopyIn([]int32{-2, 70000}); err != nil {
			t.Fatalf("CopyIn() error = %v", err)
		}
		raw, ok := e.mod.Memory().Read(buf.(*guestInts).ptr, 8)
		if !ok {
			t.Fatal("read guest memory")
		}
		if a, b := int32(binary.LittleEndian.Uint32(raw)), int32(binary.LittleEndian.Uint32(raw[4:])); a != -2 || b != 70000 {
			t.Errorf("guest memory = %d, %d; want -2, 70000", a, b)
		}
	})

	t.Run("foreign buffer", func(t *testing.T) {
		other := newTestEngine(t, rt)
		pts, err := other.AllocFloats(24)
		if err != nil {
			t.Fatalf("AllocFloats() error = %v", err)
		}
		defer pts.Free()
		tris, err := e.AllocInts(3)
		if err != nil {
			t.Fatalf("AllocInts() error = %v", err)
		}
		defer tris.Free()

		params := native.DefaultParameters()
		if _, err := e.Compute(pts, 3, 8, tris, 3, 1, &params); !errors.Is(err, ErrForeignBuffer) {
			t.Errorf("Compute() error = %v, want ErrForeignBuffer", err)
		}
	})
}

func TestEngineComputeFreesParameterBlock(t *testing.T) {
	e := newTestEngine(t, newTestRuntime(t))
	params := native.DefaultParameters()

	before := freeCount(t, e)
	if ok, err := computeCube(t, e, &params); err != nil || !ok {
		t.Fatalf("Compute() = %v, %v", ok, err)
	}
	// parameter block plus the two mesh buffers
	if got := freeCount(t, e) - before; got != 3 {
		t.Errorf("guest free called %d times, want 3", got)
	}
}

func TestEngineReleaseIsIdempotent(t *testing.T) {
	rt := newTestRuntime(t)
	e, err := rt.NewEngine(context.Background())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := e.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestDecodeHullLayout(t *testing.T) {
	tests := []struct {
		name      string
		points    []float64
		triangles []int32
		trisOff   int
		infoOff   int
	}{
		{"aligned", []float64{1, 2, 3}, []int32{0, 0, 0, 0, 0, 0}, 24, 48},
		{"padded", []float64{1, 2, 3}, []int32{0, 0, 0}, 24, 40},
		{"two points", []float64{-1, 0.5, 2, 4, 5, 6}, []int32{1, 0, 1}, 48, 64},
		{"empty", nil, nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := binary.LittleEndian
			raw := make([]byte, tt.infoOff+32)
			for i := range raw {
				raw[i] = 0xee // padding must be ignored
			}
			for i, v := range tt.points {
				le.PutUint64(raw[i*8:], math.Float64bits(v))
			}
			for i, v := range tt.triangles {
				le.PutUint32(raw[tt.trisOff+i*4:], uint32(v))
			}
			info := []float64{7.5, 0.25, 0.5, 0.75}
			for i, v := range info {
				le.PutUint64(raw[tt.infoOff+i*8:], math.Float64bits(v))
			}

			var out native.Hull
			decodeHull(raw, len(tt.points)/3, len(tt.triangles)/3, tt.trisOff, tt.infoOff, &out)

			if len(out.Points) != len(tt.points) || (len(tt.points) > 0 && !reflect.DeepEqual(out.Points, tt.points)) {
				t.Errorf("Points = %v, want %v", out.Points, tt.points)
			}
			if len(out.Triangles) != len(tt.triangles) || (len(tt.triangles) > 0 && !reflect.DeepEqual(out.Triangles, tt.triangles)) {
				t.Errorf("Triangles = %v, want %v", out.Triangles, tt.triangles)
			}
			if out.Volume != 7.5 || out.Center != [3]float64{0.25, 0.5, 0.75} {
				t.Errorf("Volume = %v, Center = %v", out.Volume, out.Center)
			}

			// The result must not alias raw.
			for i := range raw {
				raw[i] = 0
			}
			if len(tt.points) > 0 && out.Points[0] != tt.points[0] {
				t.Error("Points alias the guest block")
			}
		})
	}
}

func TestVHACDEngineOverWasm(t *testing.T) {
	rt := newTestRuntime(t)
	eng, err := vhacd.New(vhacd.WithFactory(rt.Factory()))
	if err != nil {
		t.Fatalf("vhacd.New() error = %v", err)
	}
	defer eng.Release()

	outcome, err := eng.ComputeMesh(context.Background(), vhacd.Mesh{
		Points:          cubePoints,
		StridePoints:    4,
		CountPoints:     8,
		Triangles:       cubeTriangles,
		StrideTriangles: 3,
		CountTriangles:  12,
	}, vhacd.DefaultParameters())
	if err != nil {
		t.Fatalf("ComputeMesh() error = %v", err)
	}
	if outcome != vhacd.OutcomeCompleted {
		t.Fatalf("outcome = %v, want completed", outcome)
	}
	hulls, err := eng.ConvexHulls()
	if err != nil {
		t.Fatalf("ConvexHulls() error = %v", err)
	}
	if len(hulls) != 1 {
		t.Fatalf("got %d hulls, want 1", len(hulls))
	}
	if hulls[0].NPoints() != 8 || hulls[0].NTriangles() != 12 {
		t.Errorf("hull has %d points, %d triangles; want 8, 12", hulls[0].NPoints(), hulls[0].NTriangles())
	}
}
