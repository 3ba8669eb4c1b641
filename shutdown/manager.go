package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hullbridge/core"
)

// DefaultTimeout bounds waiting for operations plus running handlers.
const DefaultTimeout = 30 * time.Second

// Manager ties together the operation tracker, the cleanup registry and
// the signal counter.
//
//	manager := shutdown.NewManager(logger, shutdown.WithTimeout(cfg.ShutdownTimeout))
//	manager.Register("database", shutdown.PriorityDatabase, shutdown.CloseDatabase(logger, database))
//	manager.Start()
//	defer manager.Shutdown()
//
//	err := manager.Run(ctx, "decompose cube.obj", engine.Cancel, func(ctx context.Context) error {
//	    _, err := engine.ComputeMesh(ctx, mesh, params)
//	    return err
//	})
type Manager struct {
	logger    *zap.Logger
	timeout   time.Duration
	forceExit func(code int)

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  *SignalCounter

	sigChan chan os.Signal
	done    chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the shutdown budget. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithForceExit replaces os.Exit for the second-signal path.
func WithForceExit(fn func(code int)) ManagerOption {
	return func(m *Manager) {
		m.forceExit = fn
	}
}

// NewManager creates a Manager. A nil logger is replaced by zap.NewNop.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:    logger,
		timeout:   DefaultTimeout,
		forceExit: os.Exit,
		ctx:       ctx,
		cancel:    cancel,
		tracker:   NewOperationTracker(),
		registry:  NewShutdownRegistry(),
		sigChan:   make(chan os.Signal, 2),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func(code int) {
		m.logger.Warn("Received second signal, forcing exit", zap.Int("exit_code", code))
		m.forceExit(code)
	})
	return m
}

// Context is cancelled when the first signal arrives.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler; lower priorities run first.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start listens for SIGINT and SIGTERM. Repeated calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.shutdown {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for {
			select {
			case sig := <-m.sigChan:
				m.handleSignal(sig)
			case <-m.done:
				return
			}
		}
	}()

	m.logger.Debug("Shutdown manager listening for signals")
}

// handleSignal cancels the managed context and every tracked operation on
// the first signal; the counter forces an exit on the second.
func (m *Manager) handleSignal(sig os.Signal) {
	if m.signals.Increment(sig) != 1 {
		return
	}
	m.logger.Info("Received shutdown signal, cancelling decompositions",
		zap.String("signal", sig.String()),
		zap.Strings("operations", m.tracker.ActiveNames()),
	)
	m.cancel()
	m.tracker.CancelAll()
}

// Signal returns the first shutdown signal received, or nil.
func (m *Manager) Signal() os.Signal {
	return m.signals.First()
}

// ExitCode returns the 128+n code for the first signal, or fallback when
// no signal was received.
func (m *Manager) ExitCode(fallback int) int {
	if sig := m.Signal(); sig != nil {
		return ExitCodeForSignal(sig)
	}
	return fallback
}

// Run tracks fn as an operation. cancel is invoked from the signal path,
// possibly on another goroutine, while fn is running. ctx is merged with
// the managed context.
func (m *Manager) Run(ctx context.Context, name string, cancel func(), fn func(context.Context) error) error {
	op, err := m.tracker.Start(name, cancel)
	if err != nil {
		m.logger.Debug("Operation rejected, shutting down", zap.String("operation", name))
		return err
	}
	defer m.tracker.Done(op)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	unlink := context.AfterFunc(m.ctx, stop)
	defer unlink()

	if err := runCtx.Err(); err != nil {
		return err
	}
	return fn(runCtx)
}

// Shutdown stops accepting operations, waits for active ones within the
// timeout, then runs handlers with the remaining budget. Handler errors
// are combined. Only the first call does any work.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	if started {
		signal.Stop(m.sigChan)
		close(m.done)
	}

	startTime := time.Now()
	m.logger.Debug("Shutting down",
		zap.Duration("timeout", m.timeout),
		zap.Int("registered_handlers", m.registry.Count()),
	)

	m.tracker.Close()
	if n := m.tracker.ActiveCount(); n > 0 {
		m.logger.Info("Waiting for in-flight decompositions",
			zap.Int("active_count", n),
			zap.Strings("operations", m.tracker.ActiveNames()),
		)
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("Timeout waiting for in-flight decompositions",
			zap.Duration("waited", time.Since(startTime)),
			zap.Int("remaining_ops", m.tracker.ActiveCount()),
		)
	}

	remaining := m.timeout - time.Since(startTime)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup handler failed", zap.Error(err))
	}
	m.cancel()

	m.logger.Debug("Shutdown complete",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("error_count", len(errs)),
	)
	return multierr.Combine(errs...)
}

// ActiveOperations returns the number of running operations.
func (m *Manager) ActiveOperations() int {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether a signal arrived or Shutdown ran.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.ctx.Err() != nil
}

// RegisteredHandlers lists handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
