package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem with an instruction for fixing it.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // What the user should change
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileInvalid    = "ENV_FILE_INVALID"
	ErrCodeInvalidBackend    = "INVALID_BACKEND"
	ErrCodeMissingWasmModule = "MISSING_WASM_MODULE"
	ErrCodeInvalidValue      = "INVALID_VALUE"
	ErrCodeMissingConfig     = "MISSING_CONFIG"
)

// ErrEnvFileInvalid is returned when a .env file exists but cannot be parsed.
func ErrEnvFileInvalid(path string, reason error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileInvalid,
		Message: fmt.Sprintf("Cannot parse %s: %v", path, reason),
		Action:  "Fix the syntax (KEY=value per line) or remove the file",
	}
}

// ErrInvalidBackend is returned for an unknown backend name.
func ErrInvalidBackend(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidBackend,
		Message: fmt.Sprintf("Unknown backend '%s'", name),
		Action:  fmt.Sprintf("Set %s (or --backend) to one of: %s, %s, %s", EnvBackend, BackendReference, BackendWasm, BackendNative),
	}
}

// ErrMissingWasmModule is returned when the wasm backend has no module path.
func ErrMissingWasmModule() *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingWasmModule,
		Message: "The wasm backend needs a compiled V-HACD module",
		Action:  fmt.Sprintf("Set %s (or --wasm-module) to a .wasm file", EnvWasmModule),
	}
}

// ErrInvalidValue is returned for a setting outside its allowed range.
func ErrInvalidValue(name string, value any, allowed string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s: %v", name, value),
		Action:  fmt.Sprintf("Set %s to %s", name, allowed),
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or your .env file", varName),
	}
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
