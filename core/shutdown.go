package core

import (
	"context"
)

// ShutdownFunc is a cleanup handler run during graceful shutdown. The
// context carries the shutdown deadline. Handlers must be idempotent.
//
//	var release ShutdownFunc = func(ctx context.Context) error {
//	    return engine.Release()
//	}
type ShutdownFunc func(ctx context.Context) error
