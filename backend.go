package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hullbridge/core"
	"hullbridge/cvhacd"
	"hullbridge/hullengine"
	"hullbridge/native"
	"hullbridge/vhacd"
	"hullbridge/wasmengine"
)

// backend is a resolved engine factory plus whatever must be closed once
// every engine from it has been released.
type backend struct {
	name    string
	factory native.Factory
	close   core.ShutdownFunc
}

// openBackend resolves cfg.Backend. For wasm this compiles the module,
// which is the slow part; engines created afterwards are cheap.
func openBackend(ctx context.Context, cfg *core.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.Backend {
	case core.BackendReference:
		return &backend{
			name:    cfg.Backend,
			factory: hullengine.Factory(hullengine.WithLogger(logger.Named("hullengine"))),
		}, nil

	case core.BackendWasm:
		rt, err := wasmengine.LoadRuntime(ctx, cfg.WasmModule, wasmengine.Config{
			MemoryLimitPages: cfg.WasmMemoryPages,
			Logger:           logger.Named("wasm"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load wasm module %s: %w", cfg.WasmModule, err)
		}
		return &backend{
			name:    cfg.Backend,
			factory: rt.Factory(),
			close:   rt.Close,
		}, nil

	case core.BackendNative:
		if !cvhacd.Available() {
			return nil, fmt.Errorf("native backend: %w", cvhacd.ErrUnavailable)
		}
		return &backend{name: cfg.Backend, factory: cvhacd.Factory()}, nil

	default:
		return nil, core.ErrInvalidBackend(cfg.Backend)
	}
}

func nativeStatus() string {
	if cvhacd.Available() {
		return "available"
	}
	return "not built (requires cgo and -tags vhacd)"
}

// unitCube is the eight-vertex, twelve-triangle cube used by the smoke
// test; every backend must return it as a single hull.
func unitCube() vhacd.Mesh {
	return vhacd.NewMesh(
		[]float32{
			0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0,
			0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1,
		},
		[]int32{
			0, 2, 1, 0, 3, 2, // bottom
			4, 5, 6, 4, 6, 7, // top
			0, 1, 5, 0, 5, 4, // front
			2, 3, 7, 2, 7, 6, // back
			1, 2, 6, 1, 6, 5, // right
			0, 4, 7, 0, 7, 3, // left
		},
	)
}

// smokeTest decomposes unitCube with b and checks for exactly one hull.
func smokeTest(ctx context.Context, b *backend, logger *zap.Logger) (uint32, error) {
	engine, err := vhacd.New(vhacd.WithFactory(b.factory), vhacd.WithLogger(logger))
	if err != nil {
		return 0, err
	}
	defer engine.Release()

	outcome, err := engine.ComputeMesh(ctx, unitCube(), vhacd.DefaultParameters())
	if err != nil {
		return 0, err
	}
	if outcome != vhacd.OutcomeCompleted {
		return 0, fmt.Errorf("cube decomposition %s", outcome)
	}
	n, err := engine.NConvexHulls()
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return n, fmt.Errorf("cube produced %d hulls, want 1", n)
	}
	return n, nil
}

func logConfigFields(cfg *core.Config) []zap.Field {
	return []zap.Field{
		zap.String("backend", cfg.Backend),
		zap.String("wasm_module", cfg.WasmModule),
		zap.Uint32("wasm_memory_pages", cfg.WasmMemoryPages),
		zap.String("max_buffer", core.FormatBytes(cfg.MaxBufferBytes)),
		zap.String("database", cfg.DatabasePath),
		zap.String("metrics_textfile", cfg.MetricsTextfile),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("dev_mode", cfg.DevMode),
	}
}
