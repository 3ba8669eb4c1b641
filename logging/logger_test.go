package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readJSONLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", sc.Text(), err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hullbridge.log")
	var console bytes.Buffer

	logger, err := New(Config{FilePath: path, Console: &console})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Named("vhacd").Info("decomposition finished", zap.Int("hulls", 3))
	logger.Zap().Debug("hidden at info level")
	_ = logger.Sync()

	entries := readJSONLines(t, path)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	for _, key := range []string{FieldTimestamp, FieldLevel, FieldMessage, FieldCaller} {
		if _, ok := e[key]; !ok {
			t.Errorf("entry missing %q: %v", key, e)
		}
	}
	if e[FieldSource] != "vhacd" || e["hulls"] != float64(3) || e[FieldLevel] != "info" {
		t.Errorf("entry = %v", e)
	}

	// Production console output is JSON too.
	if !strings.HasPrefix(strings.TrimSpace(console.String()), "{") {
		t.Errorf("console output not JSON: %q", console.String())
	}
}

func TestDevelopmentConsole(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Config{Development: true, Console: &console})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !logger.IsDevelopment() || logger.Level() != zapcore.DebugLevel {
		t.Errorf("development logger: dev=%v level=%v", logger.IsDevelopment(), logger.Level())
	}
	if logger.LogFilePath() != "" {
		t.Errorf("LogFilePath() = %q, want empty", logger.LogFilePath())
	}

	logger.Zap().Debug("visible in development")
	out := console.String()
	if !strings.Contains(out, "visible in development") || strings.HasPrefix(out, "{") {
		t.Errorf("console = %q, want text output", out)
	}
}

func TestLevelOverrideAndSetLevel(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Config{Level: "warn", Console: &console})
	if err != nil {
		t.Fatal(err)
	}

	logger.Zap().Info("suppressed")
	if console.Len() != 0 {
		t.Errorf("info logged at warn level: %q", console.String())
	}

	logger.SetLevel(zapcore.InfoLevel)
	logger.Sugar().Infof("now %s", "visible")
	if !strings.Contains(console.String(), "now visible") {
		t.Errorf("SetLevel did not take effect: %q", console.String())
	}
}

func TestNewLoggerUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "app.log")
	if _, err := NewLogger(false, path); err == nil {
		t.Error("NewLogger() with a missing directory should fail")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	if l.Zap() == nil {
		t.Error("nil Logger Zap() returned nil")
	}
	if err := l.Sync(); err != nil {
		t.Errorf("nil Logger Sync() = %v", err)
	}
}
