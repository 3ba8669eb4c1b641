// Package logging builds the application's zap logger: a console core for
// humans and a rotated JSON file core for later inspection.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects outputs and verbosity.
type Config struct {
	// Development switches the console to colored text and the default
	// level to debug.
	Development bool

	// FilePath is the JSON log file. Empty disables file output.
	FilePath string

	// Level overrides the default level ("debug", "info", ...).
	Level string

	// Console receives human-readable output. Nil selects stderr so that
	// stdout stays free for command output.
	Console io.Writer

	// File tunes rotation; zero fields take the defaults.
	File FileWriterConfig
}

// Logger wraps zap.Logger together with the settings it was built from.
//
//	logger, err := NewLogger(true, "hullbridge.log")
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.Info("decomposition finished", OutcomeFields(report)...)
type Logger struct {
	zap           *zap.Logger
	sugar         *zap.SugaredLogger
	level         zap.AtomicLevel
	isDevelopment bool
	logFilePath   string
}

// NewLogger builds a logger writing to stderr and logFilePath with default
// rotation.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return New(Config{Development: isDevelopment, FilePath: logFilePath})
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if cfg.Development {
		defaultLevel = zapcore.DebugLevel
	}
	level := zap.NewAtomicLevelAt(ParseLogLevelString(cfg.Level, defaultLevel))

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	var file zapcore.WriteSyncer
	if cfg.FilePath != "" {
		if err := ensureWritable(cfg.FilePath); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = NewFileWriterWithConfig(cfg.FilePath, cfg.File)
	}

	core := NewMultiCore(level, zapcore.AddSync(console), file, cfg.Development)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{
		zap:           zl,
		sugar:         zl.Sugar(),
		level:         level,
		isDevelopment: cfg.Development,
		logFilePath:   cfg.FilePath,
	}, nil
}

// ensureWritable surfaces permission problems at startup rather than on
// the first rotated write.
func ensureWritable(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Zap returns the underlying logger, which is what library packages accept.
func (l *Logger) Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.zap
}

// Sugar returns the printf-style logger.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.Zap().Sugar()
}

// Named returns a child zap logger with the given source name.
func (l *Logger) Named(name string) *zap.Logger {
	return l.Zap().Named(name)
}

// SetLevel changes the level of every core at runtime.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// Level reports the current level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

func (l *Logger) IsDevelopment() bool { return l.isDevelopment }

func (l *Logger) LogFilePath() string { return l.logFilePath }

// Sync flushes buffered entries. Call before exiting.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}
