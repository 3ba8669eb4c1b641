package wasmengine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"hullbridge/native"
)

// DefaultMemoryLimitPages caps guest memory at 1 GiB (64 KiB pages).
const DefaultMemoryLimitPages = 16384

// hostModule is the import namespace the guest links its callbacks against.
const hostModule = "env"

var requiredExports = []string{
	"malloc",
	"free",
	"vhacd_create",
	"vhacd_compute",
	"vhacd_n_hulls",
	"vhacd_hull_sizes",
	"vhacd_hull_copy",
	"vhacd_clean",
	"vhacd_release",
}

// Config controls runtime construction.
type Config struct {
	// MemoryLimitPages bounds each guest's linear memory. Zero selects
	// DefaultMemoryLimitPages.
	MemoryLimitPages uint32

	// Logger receives guest log lines. Nil discards them.
	Logger *zap.Logger
}

// Runtime owns a wazero runtime and one compiled guest module. Engines
// created from it share the compiled code but not memory.
type Runtime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewRuntime compiles wasm and checks that it satisfies the guest ABI.
func NewRuntime(ctx context.Context, wasm []byte, cfg Config) (*Runtime, error) {
	pages := cfg.MemoryLimitPages
	if pages == 0 {
		pages = DefaultMemoryLimitPages
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := wazero.NewRuntimeConfig().WithMemoryLimitPages(pages)
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	if err := registerHost(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("register host module: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("%w: %w", ErrInvalidModule, err)
	}

	if err := checkExports(compiled); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	logger.Debug("Compiled wasm decomposition module",
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Uint32("memory_limit_pages", pages))

	return &Runtime{
		runtime:  rt,
		compiled: compiled,
		logger:   logger,
	}, nil
}

// LoadRuntime reads a module from path and calls NewRuntime.
func LoadRuntime(ctx context.Context, path string, cfg Config) (*Runtime, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wasm module: %w", err)
	}
	return NewRuntime(ctx, wasm, cfg)
}

func checkExports(compiled wazero.CompiledModule) error {
	if len(compiled.ExportedMemories()) == 0 {
		return fmt.Errorf("%w: memory", ErrMissingExport)
	}
	fns := compiled.ExportedFunctions()
	for _, name := range requiredExports {
		if _, ok := fns[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingExport, name)
		}
	}
	return nil
}

// registerHost installs the callbacks a guest may import. They locate the
// calling engine through the context passed to the guest call.
func registerHost(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			if c := callFrom(ctx); c != nil && c.engine.cancelled.Load() {
				return 1
			}
			return 0
		}).
		Export("vhacd_cancelled").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, overall, stage, operation float64) {
			if c := callFrom(ctx); c != nil && c.params != nil {
				c.params.Report(native.Progress{
					Overall:   overall,
					Stage:     stage,
					Operation: operation,
				})
			}
		}).
		Export("vhacd_progress").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
			c := callFrom(ctx)
			if c == nil {
				return
			}
			msg, ok := mod.Memory().Read(ptr, length)
			if !ok {
				return
			}
			text := string(msg)
			c.engine.logger.Debug("Guest log", zap.String("message", text))
			if c.params != nil {
				c.params.Log(text)
			}
		}).
		Export("vhacd_log").
		Instantiate(ctx)
	return err
}

// Factory returns a native.Factory producing engines from this runtime.
func (r *Runtime) Factory() native.Factory {
	return func() (native.Engine, error) {
		return r.NewEngine(context.Background())
	}
}

// Close releases the compiled module and every instance still open.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.runtime.Close(ctx)
}

func (r *Runtime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
