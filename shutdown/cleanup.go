package shutdown

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"hullbridge/core"
	"hullbridge/metrics"
)

// PartialSuffix marks output files that were still being written.
const PartialSuffix = ".partial-*"

// Releaser is satisfied by vhacd.Engine.
type Releaser interface {
	Release() error
}

// Closer is satisfied by db.Database.
type Closer interface {
	Close() error
}

// ReleaseEngine returns a handler that releases the native engine. Release
// is idempotent, so running it after the normal path is harmless.
func ReleaseEngine(logger *zap.Logger, engine Releaser) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if err := engine.Release(); err != nil {
			logger.Warn("Engine release failed", zap.Error(err))
			return err
		}
		logger.Debug("Engine released")
		return nil
	}
}

// CloseDatabase returns a handler that closes the history database.
func CloseDatabase(logger *zap.Logger, database Closer) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if err := database.Close(); err != nil {
			logger.Warn("Database close failed", zap.Error(err))
			return err
		}
		logger.Debug("Database closed")
		return nil
	}
}

// WriteMetrics returns a handler that writes the exporter's registry to a
// node-exporter textfile.
func WriteMetrics(logger *zap.Logger, exporter *metrics.Exporter, path string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if err := exporter.WriteTextfile(path); err != nil {
			return err
		}
		logger.Debug("Metrics textfile written", zap.String("path", path))
		return nil
	}
}

// SyncLogger flushes logger. Sync on a terminal fails with EINVAL or
// ENOTTY on some platforms; those are ignored.
func SyncLogger(logger *zap.Logger) core.ShutdownFunc {
	return func(ctx context.Context) error {
		err := logger.Sync()
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
			return nil
		}
		return err
	}
}

// RemovePartialOutput returns a handler that deletes unfinished output
// files left next to target, i.e. files named target+PartialSuffix.
func RemovePartialOutput(logger *zap.Logger, target string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return removePartialFiles(ctx, logger, target)
	}
}

// removePartialFiles never fails shutdown; problems are logged.
func removePartialFiles(ctx context.Context, logger *zap.Logger, target string) error {
	pattern := target + PartialSuffix
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logger.Error("Failed to list partial output files",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	var removed, failed int
	for _, match := range matches {
		select {
		case <-ctx.Done():
			logger.Warn("Shutdown context cancelled during cleanup",
				zap.Int("removed", removed),
				zap.Int("remaining", len(matches)-removed-failed),
			)
			return nil
		default:
		}

		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			failed++
			logger.Warn("Failed to remove partial output",
				zap.String("file", filepath.Base(match)),
				zap.Error(err),
			)
			continue
		}
		removed++
	}

	logger.Info("Removed partial output files",
		zap.Int("removed", removed),
		zap.Int("failed", failed),
	)
	return nil
}
