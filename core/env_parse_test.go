package core

import (
	"testing"
	"time"
)

func TestParseEnvHelpers(t *testing.T) {
	t.Setenv("HB_TEST_INT", "42")
	t.Setenv("HB_TEST_BAD", "forty-two")
	t.Setenv("HB_TEST_NEG", "-3")
	t.Setenv("HB_TEST_FLOAT", "0.25")
	t.Setenv("HB_TEST_SPACE", "  padded  ")
	t.Setenv("HB_TEST_UNSET", "")

	if got := ParseIntEnv("HB_TEST_INT", 1); got != 42 {
		t.Errorf("ParseIntEnv = %d, want 42", got)
	}
	if got := ParseIntEnv("HB_TEST_BAD", 1); got != 1 {
		t.Errorf("ParseIntEnv(bad) = %d, want default", got)
	}
	if got := ParseInt64Env("HB_TEST_NEG", 0); got != -3 {
		t.Errorf("ParseInt64Env = %d, want -3", got)
	}
	if got := ParseUint32Env("HB_TEST_NEG", 9); got != 9 {
		t.Errorf("ParseUint32Env(negative) = %d, want default", got)
	}
	if got := ParseUint32Env("HB_TEST_INT", 9); got != 42 {
		t.Errorf("ParseUint32Env = %d, want 42", got)
	}
	if got := ParseFloat64Env("HB_TEST_FLOAT", 1); got != 0.25 {
		t.Errorf("ParseFloat64Env = %v, want 0.25", got)
	}
	if got := GetEnvOrDefault("HB_TEST_SPACE", "x"); got != "padded" {
		t.Errorf("GetEnvOrDefault = %q, want trimmed value", got)
	}
	if got := GetEnvOrDefault("HB_TEST_UNSET", "x"); got != "x" {
		t.Errorf("GetEnvOrDefault(unset) = %q, want default", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"ON", false, true},
		{"1", false, true},
		{"no", true, false},
		{"Off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("HB_TEST_BOOL", tt.value)
			if got := ParseBoolEnv("HB_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 30 * time.Second},
		{"45", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"1500ms", 1500 * time.Millisecond},
		{"soon", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("HB_TEST_DURATION", tt.value)
			if got := ParseDurationEnv("HB_TEST_DURATION", 30); got != tt.want {
				t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
