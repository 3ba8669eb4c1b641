package core

import (
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	oldV, oldB, oldC := Version, BuildTime, GitCommit
	t.Cleanup(func() { Version, BuildTime, GitCommit = oldV, oldB, oldC })

	Version, BuildTime, GitCommit = "v1.2.0", "2026-01-15T10:30:00Z", "abc1234"
	want := "v1.2.0 (built 2026-01-15T10:30:00Z, commit abc1234)"
	if got := GetVersionInfo(); got != want {
		t.Errorf("GetVersionInfo() = %q, want %q", got, want)
	}
}

func TestGetPlatform(t *testing.T) {
	if got := GetPlatform(); !strings.Contains(got, "/") || !strings.Contains(got, "go") {
		t.Errorf("GetPlatform() = %q", got)
	}
}

func TestBuildLdflags(t *testing.T) {
	tests := []struct {
		name             string
		v, built, commit string
		want             string
	}{
		{"all", "v1", "t", "c", "-X hullbridge/core.Version=v1 -X hullbridge/core.BuildTime=t -X hullbridge/core.GitCommit=c"},
		{"version only", "v1", "", "", "-X hullbridge/core.Version=v1"},
		{"commit only", "", "", "c", "-X hullbridge/core.GitCommit=c"},
		{"none", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildLdflags(tt.v, tt.built, tt.commit); got != tt.want {
				t.Errorf("BuildLdflags() = %q, want %q", got, tt.want)
			}
		})
	}
}
