package core

import "runtime"

// Version is the application version, injected at build time:
//
//	go build -ldflags "-X hullbridge/core.Version=$(git describe --tags --always)" .
//
// Defaults to "dev".
var Version = "dev"

// BuildTime is the build timestamp, injected at build time:
//
//	go build -ldflags "-X hullbridge/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" .
var BuildTime = "unknown"

// GitCommit is the short commit hash, injected at build time:
//
//	go build -ldflags "-X hullbridge/core.GitCommit=$(git rev-parse --short HEAD)" .
var GitCommit = "unknown"

// GetVersionInfo returns a one-line version string, e.g.
// "v1.2.0 (built 2026-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}

// GetPlatform returns GOOS/GOARCH and the Go version the binary was built with.
func GetPlatform() string {
	return runtime.GOOS + "/" + runtime.GOARCH + " " + runtime.Version()
}

// BuildLdflags assembles the -X flags for the given values, skipping empty
// ones. Used by release scripts.
func BuildLdflags(version, buildTime, gitCommit string) string {
	var flags string
	add := func(name, value string) {
		if value == "" {
			return
		}
		if flags != "" {
			flags += " "
		}
		flags += "-X hullbridge/core." + name + "=" + value
	}
	add("Version", version)
	add("BuildTime", buildTime)
	add("GitCommit", gitCommit)
	return flags
}
