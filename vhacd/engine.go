package vhacd

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hullbridge/hullengine"
	"hullbridge/native"

	"go.uber.org/zap"
)

var engineCounter uint64

const (
	runIdle int32 = iota
	runActive
	runCancelled
)

// Engine owns one native decomposition instance.
type Engine struct {
	mu       sync.Mutex
	native   native.Engine // nil once released
	state    State
	outcome  Outcome
	computes int

	// run is runIdle outside the native call. Cancel moves it from
	// runActive to runCancelled; the native call swaps it back to idle
	// when it returns, so a late Cancel cannot relabel the result.
	run atomic.Int32

	// afterNative runs between the native call and classification. Tests
	// use it to land a Cancel in that window.
	afterNative func()

	id             uint64
	logger         *zap.Logger
	factory        native.Factory
	maxBufferBytes int64
	observer       func(ComputeReport)
}

// Option configures an Engine.
type Option func(*Engine)

// WithFactory selects the native backend.
func WithFactory(f native.Factory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxBufferBytes bounds the memory marshaled into the engine per
// Compute. Zero or negative disables the bound.
func WithMaxBufferBytes(n int64) Option {
	return func(e *Engine) {
		e.maxBufferBytes = n
	}
}

// WithObserver registers fn to receive a report after every Compute that
// reached the native engine.
func WithObserver(fn func(ComputeReport)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// New creates the native instance. A failing factory is reported as
// ErrEngineUnavailable.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		id:             atomic.AddUint64(&engineCounter, 1),
		logger:         zap.NewNop(),
		maxBufferBytes: DefaultMaxBufferBytes,
		state:          StateCreated,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.factory == nil {
		e.factory = hullengine.Factory(hullengine.WithLogger(e.logger))
	}
	e.logger = e.logger.With(zap.Uint64("engine_id", e.id))

	inst, err := e.factory()
	if err != nil {
		return nil, wrapError("Create", StateCreated, ErrEngineUnavailable, err)
	}
	if inst == nil {
		return nil, newError("Create", StateCreated, ErrEngineUnavailable, "factory returned no engine")
	}
	e.native = inst
	e.logger.Debug("engine created")
	return e, nil
}

// ID identifies the engine in logs and reports.
func (e *Engine) ID() uint64 { return e.id }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastOutcome returns the outcome of the most recent Compute.
func (e *Engine) LastOutcome() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome
}

// Compute runs one decomposition and reports true only if it completed.
// Cancelled and failed runs both return false with a nil error; use
// ComputeMesh to tell them apart.
func (e *Engine) Compute(points []float32, stridePoints, countPoints uint32,
	triangles []int32, strideTriangles, countTriangles uint32, params Parameters) (bool, error) {
	outcome, err := e.ComputeMesh(context.Background(), Mesh{
		Points:          points,
		StridePoints:    stridePoints,
		CountPoints:     countPoints,
		Triangles:       triangles,
		StrideTriangles: strideTriangles,
		CountTriangles:  countTriangles,
	}, params)
	return outcome == OutcomeCompleted, err
}

// ComputeMesh validates and marshals mesh, runs the native engine and
// classifies the result. When ctx is done before the engine returns, the
// engine is cancelled.
func (e *Engine) ComputeMesh(ctx context.Context, mesh Mesh, params Parameters) (Outcome, error) {
	const op = "Compute"

	e.mu.Lock()
	if err := e.usable(op); err != nil {
		e.mu.Unlock()
		return OutcomeNone, err
	}
	if err := mesh.Validate(); err != nil {
		e.mu.Unlock()
		return OutcomeNone, wrapError(op, e.state, ErrInvalidInput, err)
	}
	if err := ValidateParameters(params); err != nil {
		e.mu.Unlock()
		return OutcomeNone, wrapError(op, e.state, ErrInvalidInput, err)
	}

	inst := e.native
	nativeParams := translateParameters(params)
	buffers, err := marshalMesh(inst, mesh, e.maxBufferBytes)
	if err != nil {
		state := e.state
		e.mu.Unlock()
		e.logger.Warn("mesh marshaling failed", zap.Error(err))
		return OutcomeNone, &EngineError{Op: op, State: state, Err: err}
	}

	// Drop the previous result set before the next one is built.
	inst.Clean()
	e.run.Store(runActive)
	if ctx.Err() != nil {
		e.run.Store(runCancelled)
		inst.Cancel()
	}
	e.state = StateComputing
	e.computes++
	e.mu.Unlock()

	// A panicking backend still leaves the engine releasable.
	finished := false
	defer func() {
		if finished {
			return
		}
		e.run.Store(runIdle)
		e.mu.Lock()
		e.state = StateFailed
		e.outcome = OutcomeFailed
		e.mu.Unlock()
		e.logger.Error("native compute panicked")
	}()

	stop := context.AfterFunc(ctx, func() {
		if err := e.Cancel(); err != nil {
			e.logger.Debug("context cancel ignored", zap.Error(err))
		}
	})
	defer stop()

	e.logger.Debug("compute started",
		zap.Uint32("points", mesh.CountPoints),
		zap.Uint32("triangles", mesh.CountTriangles),
	)
	start := time.Now()
	ok, cancelled, nativeErr := e.runNative(inst, buffers, mesh, nativeParams)
	elapsed := time.Since(start)
	finished = true
	if e.afterNative != nil {
		e.afterNative()
	}

	e.mu.Lock()
	outcome := OutcomeFailed
	switch {
	case nativeErr != nil:
	case ok:
		outcome = OutcomeCompleted
	case cancelled:
		outcome = OutcomeCancelled
	}
	e.state = outcome.state()
	e.outcome = outcome
	hulls := inst.NConvexHulls()
	e.mu.Unlock()

	var computeErr error
	if nativeErr != nil {
		computeErr = wrapError(op, StateFailed, ErrNativeFault, nativeErr)
	}

	e.logger.Info("compute finished",
		zap.Stringer("outcome", outcome),
		zap.Uint32("hulls", hulls),
		zap.Duration("duration", elapsed),
		zap.Error(computeErr),
	)
	if e.observer != nil {
		e.observer(ComputeReport{
			EngineID:       e.id,
			Outcome:        outcome,
			Duration:       elapsed,
			CountPoints:    mesh.CountPoints,
			CountTriangles: mesh.CountTriangles,
			Hulls:          hulls,
			Err:            computeErr,
		})
	}
	return outcome, computeErr
}

// runNative calls the native engine and frees the marshaled buffers when it
// returns, including by panic. cancelled reports whether Cancel reached the
// engine before the native call returned.
func (e *Engine) runNative(inst native.Engine, buffers *marshaledMesh, mesh Mesh, params *native.Parameters) (ok, cancelled bool, err error) {
	defer func() {
		if err := buffers.release(); err != nil {
			e.logger.Error("failed to free marshaled buffers", zap.Error(err))
		}
	}()
	ok, err = inst.Compute(
		buffers.points, mesh.StridePoints, mesh.CountPoints,
		buffers.triangles, mesh.StrideTriangles, mesh.CountTriangles,
		params,
	)
	cancelled = e.run.Swap(runIdle) == runCancelled
	return ok, cancelled, err
}

// Cancel asks an in-flight Compute to stop. It is a no-op when nothing is
// computing and never frees resources.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.native == nil {
		return newError("Cancel", e.state, ErrInvalidState, "engine released")
	}
	if !e.run.CompareAndSwap(runActive, runCancelled) {
		return nil
	}
	e.native.Cancel()
	e.logger.Debug("cancel requested")
	return nil
}

// Clean empties the native result set. The engine stays usable.
func (e *Engine) Clean() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable("Clean"); err != nil {
		return err
	}
	e.native.Clean()
	return nil
}

// Release destroys the native instance. Calling it again is a no-op.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.native == nil {
		return nil
	}
	if e.state == StateComputing {
		return newError("Release", e.state, ErrInvalidState, "compute in flight")
	}

	err := e.native.Release()
	e.native = nil
	e.state = StateReleased
	e.logger.Debug("engine released", zap.Int("computes", e.computes))
	if err != nil {
		return wrapError("Release", StateReleased, ErrNativeFault, err)
	}
	return nil
}

// Close releases the engine so it can be used as an io.Closer.
func (e *Engine) Close() error {
	return e.Release()
}

// usable rejects operations on a released or busy engine. Callers hold mu.
func (e *Engine) usable(op string) error {
	switch {
	case e.native == nil:
		return newError(op, e.state, ErrInvalidState, "engine released")
	case e.state == StateComputing:
		return newError(op, e.state, ErrInvalidState, "compute in flight")
	}
	return nil
}
