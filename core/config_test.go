package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDevMode, EnvLogLevel, EnvLogFile, EnvBackend, EnvWasmModule,
		EnvWasmMemoryPages, EnvMaxBufferMB, EnvDBPath, EnvMetricsTextfile,
		EnvShutdownTimeout,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Backend != BackendReference {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendReference)
	}
	if cfg.LogFile != "hullbridge.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.WasmMemoryPages != 16384 {
		t.Errorf("WasmMemoryPages = %d, want 16384", cfg.WasmMemoryPages)
	}
	if cfg.MaxBufferBytes != 1024*BytesPerMB {
		t.Errorf("MaxBufferBytes = %d, want 1 GiB", cfg.MaxBufferBytes)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.DatabasePath != "" || cfg.MetricsTextfile != "" || cfg.DevMode {
		t.Errorf("optional features enabled by default: %+v", cfg)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvBackend, "WASM")
	t.Setenv(EnvWasmModule, "/opt/vhacd.wasm")
	t.Setenv(EnvWasmMemoryPages, "2048")
	t.Setenv(EnvMaxBufferMB, "64")
	t.Setenv(EnvShutdownTimeout, "90s")
	t.Setenv(EnvDBPath, "runs.db")
	t.Setenv(EnvDevMode, "yes")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Backend != BackendWasm || cfg.WasmModule != "/opt/vhacd.wasm" {
		t.Errorf("backend = %q module = %q", cfg.Backend, cfg.WasmModule)
	}
	if cfg.WasmMemoryPages != 2048 || cfg.MaxBufferBytes != 64*BytesPerMB {
		t.Errorf("limits = %d pages, %d bytes", cfg.WasmMemoryPages, cfg.MaxBufferBytes)
	}
	if cfg.ShutdownTimeout != 90*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 90s", cfg.ShutdownTimeout)
	}
	if !cfg.DevMode || cfg.DatabasePath != "runs.db" {
		t.Errorf("DevMode = %v DatabasePath = %q", cfg.DevMode, cfg.DatabasePath)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantCode string
	}{
		{"unknown backend", map[string]string{EnvBackend: "gpu"}, ErrCodeInvalidBackend},
		{"wasm without module", map[string]string{EnvBackend: "wasm"}, ErrCodeMissingWasmModule},
		{"too many pages", map[string]string{EnvWasmMemoryPages: "70000"}, ErrCodeInvalidValue},
		{"zero buffer budget", map[string]string{EnvMaxBufferMB: "0"}, ErrCodeInvalidValue},
		{"zero shutdown timeout", map[string]string{EnvShutdownTimeout: "0"}, ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			if got := GetErrorCode(err); got != tt.wantCode {
				t.Errorf("LoadConfig() error = %v, code %q, want %q", err, got, tt.wantCode)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	if err := LoadEnvFile(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HULLBRIDGE_TEST_ENV_FILE=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HULLBRIDGE_TEST_ENV_FILE", "")
	os.Unsetenv("HULLBRIDGE_TEST_ENV_FILE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("HULLBRIDGE_TEST_ENV_FILE"); got != "from-file" {
		t.Errorf("variable = %q, want from-file", got)
	}
}

func TestReadConfigSkipsValidation(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvBackend, "WASM")

	cfg := ReadConfig()
	if cfg.Backend != BackendWasm {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendWasm)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should reject wasm without a module")
	}

	cfg.WasmModule = "engine.wasm"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after override error = %v", err)
	}
}
