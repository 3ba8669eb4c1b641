package wasmengine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

var (
	emptyModule = []byte("\x00asm\x01\x00\x00\x00")

	// memoryOnlyModule exports a single one-page memory and nothing else.
	memoryOnlyModule = []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	}
)

func TestNewRuntimeRejectsModules(t *testing.T) {
	tests := []struct {
		name    string
		wasm    []byte
		wantErr error
	}{
		{"garbage bytes", []byte("not wasm"), ErrInvalidModule},
		{"empty input", nil, ErrInvalidModule},
		{"no memory export", emptyModule, ErrMissingExport},
		{"memory without functions", memoryOnlyModule, ErrMissingExport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := NewRuntime(context.Background(), tt.wasm, Config{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewRuntime() error = %v, want %v", err, tt.wantErr)
			}
			if rt != nil {
				t.Error("NewRuntime() returned a runtime alongside an error")
			}
		})
	}
}

func TestMissingExportNamesFirstGap(t *testing.T) {
	_, err := NewRuntime(context.Background(), memoryOnlyModule, Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), "wasmengine: missing required export: malloc"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestLoadRuntimeMissingFile(t *testing.T) {
	_, err := LoadRuntime(context.Background(), filepath.Join(t.TempDir(), "absent.wasm"), Config{})
	if err == nil {
		t.Fatal("LoadRuntime() on a missing file should fail")
	}
}

func TestClosedRuntimeFactory(t *testing.T) {
	r := &Runtime{closed: true}

	if _, err := r.Factory()(); !errors.Is(err, ErrClosed) {
		t.Errorf("Factory()() error = %v, want ErrClosed", err)
	}
	if err := r.Close(context.Background()); err != nil {
		t.Errorf("Close() on closed runtime = %v, want nil", err)
	}
}
