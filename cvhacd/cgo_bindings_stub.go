//go:build !vhacd || !cgo

// Stub used when the native library is not linked.

package cvhacd

import "hullbridge/native"

const available = false

func newEngine() (native.Engine, error) {
	return nil, ErrUnavailable
}
