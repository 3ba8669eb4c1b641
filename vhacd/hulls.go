package vhacd

import "hullbridge/native"

// NConvexHulls returns the size of the current result set: zero before the
// first Compute and after Clean.
func (e *Engine) NConvexHulls() (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable("NConvexHulls"); err != nil {
		return 0, err
	}
	return e.native.NConvexHulls(), nil
}

// ConvexHull copies hull index out of the native result set.
func (e *Engine) ConvexHull(index uint32) (*ConvexHull, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable("ConvexHull"); err != nil {
		return nil, err
	}
	return e.copyHull(index)
}

// ConvexHulls copies the whole result set.
func (e *Engine) ConvexHulls() ([]*ConvexHull, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.usable("ConvexHulls"); err != nil {
		return nil, err
	}
	n := e.native.NConvexHulls()
	hulls := make([]*ConvexHull, 0, n)
	for i := uint32(0); i < n; i++ {
		h, err := e.copyHull(i)
		if err != nil {
			return nil, err
		}
		hulls = append(hulls, h)
	}
	return hulls, nil
}

// copyHull fetches one hull. Callers hold mu.
func (e *Engine) copyHull(index uint32) (*ConvexHull, error) {
	if n := e.native.NConvexHulls(); index >= n {
		return nil, newError("ConvexHull", e.state, ErrIndexOutOfRange, "index %d, %d hulls", index, n)
	}

	var h native.Hull
	if err := e.native.ConvexHull(index, &h); err != nil {
		return nil, wrapError("ConvexHull", e.state, ErrNativeFault, err)
	}
	return &ConvexHull{
		Points:    append([]float64(nil), h.Points...),
		Triangles: append([]int32(nil), h.Triangles...),
		Volume:    h.Volume,
		Center:    h.Center,
	}, nil
}
