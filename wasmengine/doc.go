// Package wasmengine runs a V-HACD build compiled to WebAssembly inside a
// wazero runtime and exposes every guest instance as a native.Engine.
//
// The guest module must export its linear memory together with:
//
//	malloc(size i32) i32
//	free(ptr i32)
//	vhacd_create() i32
//	vhacd_compute(h, points, stridePoints, countPoints, triangles, strideTriangles, countTriangles, params i32) i32
//	vhacd_n_hulls(h i32) i32
//	vhacd_hull_sizes(h, index, out i32)
//	vhacd_hull_copy(h, index, points, triangles, info i32)
//	vhacd_clean(h i32)
//	vhacd_release(h i32)
//
// and may import from the "env" module:
//
//	vhacd_cancelled() i32
//	vhacd_progress(overall, stage, operation f64)
//	vhacd_log(ptr, len i32)
//
// Points cross the boundary as little-endian float32, triangle indices as
// little-endian int32 and hull points come back as float64. The parameter
// block layout is documented on encodeParameters.
package wasmengine
