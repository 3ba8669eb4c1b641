// Package vhacd is the lifecycle and marshaling boundary around a native
// convex-decomposition engine.
//
// An Engine owns exactly one native instance for its whole life. It copies
// caller meshes into engine-owned buffers for the duration of a single
// Compute, translates Parameters into the native parameter block, exposes
// the resulting convex hulls as caller-owned copies, and releases the native
// instance exactly once.
//
// # Quick Start
//
//	eng, err := vhacd.New(vhacd.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer eng.Release()
//
//	outcome, err := eng.ComputeMesh(ctx, mesh, vhacd.DefaultParameters())
//	if err != nil {
//	    return err
//	}
//	if outcome != vhacd.OutcomeCompleted {
//	    return fmt.Errorf("decomposition %s", outcome)
//	}
//	hulls, err := eng.ConvexHulls()
//
// # Concurrency
//
// Compute blocks. Cancel may be called from any goroutine while Compute runs
// and is the only method that may. Clean, Release, the hull accessors and a
// second Compute are rejected with ErrInvalidState until Compute returns.
// Cancelling the context passed to ComputeMesh issues Cancel.
//
// # Backends
//
// New uses the in-process reference engine from package hullengine unless
// WithFactory selects another native.Factory, such as wasmengine.Factory or
// cvhacd.Factory.
package vhacd
