// Package cvhacd binds the C++ V-HACD library through cgo.
//
// The binding talks to a thin C shim (vhacd_c.h) that wraps IVHACD behind
// plain functions. Build with:
//
//	CGO_ENABLED=1 go build -tags vhacd
//
// Prerequisites:
//  1. the shim and V-HACD compiled as a shared library (libvhacd_c)
//  2. CGO_CFLAGS pointing at vhacd_c.h
//  3. CGO_LDFLAGS linking -lvhacd_c
//
// Without the tag (or without cgo) every constructor returns
// ErrUnavailable, and callers fall back to another backend.
package cvhacd

import (
	"errors"

	"hullbridge/native"
)

// ErrUnavailable is returned when the binary was built without the native
// library.
var ErrUnavailable = errors.New("cvhacd: native V-HACD library not linked (build with -tags vhacd)")

// ErrForeignBuffer is returned when Compute receives a buffer it did not
// allocate.
var ErrForeignBuffer = errors.New("cvhacd: buffer not allocated by this binding")

// Factory returns a native.Factory creating library instances.
func Factory() native.Factory {
	return func() (native.Engine, error) {
		return newEngine()
	}
}

// Available reports whether the native library was linked in.
func Available() bool {
	return available
}
