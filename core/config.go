package core

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by HULLBRIDGE_BACKEND and --backend.
const (
	BackendReference = "reference"
	BackendWasm      = "wasm"
	BackendNative    = "native"
)

// Environment variables read by LoadConfig.
const (
	EnvDevMode         = "DEV_MODE"
	EnvLogLevel        = "HULLBRIDGE_LOG_LEVEL"
	EnvLogFile         = "HULLBRIDGE_LOG_FILE"
	EnvBackend         = "HULLBRIDGE_BACKEND"
	EnvWasmModule      = "HULLBRIDGE_WASM_MODULE"
	EnvWasmMemoryPages = "HULLBRIDGE_WASM_MEMORY_PAGES"
	EnvMaxBufferMB     = "HULLBRIDGE_MAX_BUFFER_MB"
	EnvDBPath          = "HULLBRIDGE_DB_PATH"
	EnvMetricsTextfile = "HULLBRIDGE_METRICS_TEXTFILE"
	EnvShutdownTimeout = "HULLBRIDGE_SHUTDOWN_TIMEOUT"
)

const (
	maxWasmMemoryPages  = 65536
	defaultMemoryPages  = 16384
	defaultMaxBufferMB  = 1024
	defaultShutdownSecs = 30
)

// Config holds the application settings.
type Config struct {
	DevMode  bool
	LogLevel string // empty selects the logger's default
	LogFile  string

	Backend         string
	WasmModule      string
	WasmMemoryPages uint32
	MaxBufferBytes  int64
	ShutdownTimeout time.Duration
	DatabasePath    string // empty disables run history
	MetricsTextfile string // empty disables the textfile export
}

// LoadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ErrEnvFileInvalid(path, err)
	}
	return nil
}

// LoadConfig reads the HULLBRIDGE_* environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := ReadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig reads the environment without validating, for callers that
// apply command-line overrides first.
func ReadConfig() *Config {
	return &Config{
		DevMode:         ParseBoolEnv(EnvDevMode, false),
		LogLevel:        GetEnvOrDefault(EnvLogLevel, ""),
		LogFile:         GetEnvOrDefault(EnvLogFile, "hullbridge.log"),
		Backend:         strings.ToLower(GetEnvOrDefault(EnvBackend, BackendReference)),
		WasmModule:      GetEnvOrDefault(EnvWasmModule, ""),
		WasmMemoryPages: ParseUint32Env(EnvWasmMemoryPages, defaultMemoryPages),
		MaxBufferBytes:  ParseInt64Env(EnvMaxBufferMB, defaultMaxBufferMB) * BytesPerMB,
		ShutdownTimeout: ParseDurationEnv(EnvShutdownTimeout, defaultShutdownSecs),
		DatabasePath:    GetEnvOrDefault(EnvDBPath, ""),
		MetricsTextfile: GetEnvOrDefault(EnvMetricsTextfile, ""),
	}
}

// Validate checks cross-field constraints. Flags that override fields after
// LoadConfig should be followed by another Validate.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendReference, BackendNative:
	case BackendWasm:
		if c.WasmModule == "" {
			return ErrMissingWasmModule()
		}
	default:
		return ErrInvalidBackend(c.Backend)
	}

	if c.WasmMemoryPages == 0 || c.WasmMemoryPages > maxWasmMemoryPages {
		return ErrInvalidValue(EnvWasmMemoryPages, c.WasmMemoryPages, "a page count between 1 and 65536")
	}
	if c.MaxBufferBytes <= 0 {
		return ErrInvalidValue(EnvMaxBufferMB, c.MaxBufferBytes/BytesPerMB, "a positive number of megabytes")
	}
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidValue(EnvShutdownTimeout, c.ShutdownTimeout, "a positive duration")
	}
	return nil
}
