package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the value of key, or defaultValue when unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// ParseIntEnv parses key as an int, falling back to defaultValue when unset
// or unparsable.
func ParseIntEnv(key string, defaultValue int) int {
	if value := GetEnvOrDefault(key, ""); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// ParseInt64Env is ParseIntEnv for int64.
func ParseInt64Env(key string, defaultValue int64) int64 {
	if value := GetEnvOrDefault(key, ""); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

// ParseUint32Env is ParseIntEnv for uint32. Negative values are unparsable.
func ParseUint32Env(key string, defaultValue uint32) uint32 {
	if value := GetEnvOrDefault(key, ""); value != "" {
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return defaultValue
}

// ParseFloat64Env is ParseIntEnv for float64.
func ParseFloat64Env(key string, defaultValue float64) float64 {
	if value := GetEnvOrDefault(key, ""); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// ParseBoolEnv accepts true/1/yes/on and false/0/no/off, case-insensitive.
// Anything else yields defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(GetEnvOrDefault(key, "")) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ParseDurationEnv reads key either as a Go duration ("90s", "2m") or as a
// bare number of seconds.
func ParseDurationEnv(key string, defaultSeconds int) time.Duration {
	value := GetEnvOrDefault(key, "")
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return time.Duration(ParseIntEnv(key, defaultSeconds)) * time.Second
}
