package wasmengine

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hullbridge/native"
)

// callKey carries the active call into host functions.
type callKey struct{}

type call struct {
	engine *Engine
	params *native.Parameters
}

func callFrom(ctx context.Context) *call {
	c, _ := ctx.Value(callKey{}).(*call)
	return c
}

// Engine is one guest instance holding one decomposition handle.
type Engine struct {
	mod    api.Module
	handle uint32
	logger *zap.Logger

	fnMalloc  api.Function
	fnFree    api.Function
	fnCompute api.Function
	fnNHulls  api.Function
	fnSizes   api.Function
	fnCopy    api.Function
	fnClean   api.Function
	fnRelease api.Function

	cancelled atomic.Bool
	released  bool
}

var _ native.Engine = (*Engine)(nil)

// NewEngine instantiates a fresh guest and creates its decomposition handle.
func (r *Runtime) NewEngine(ctx context.Context) (*Engine, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}

	name := "vhacd-" + uuid.NewString()
	mc := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")

	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, mc)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}

	e := &Engine{
		mod:       mod,
		logger:    r.logger.With(zap.String("instance", name)),
		fnMalloc:  mod.ExportedFunction("malloc"),
		fnFree:    mod.ExportedFunction("free"),
		fnCompute: mod.ExportedFunction("vhacd_compute"),
		fnNHulls:  mod.ExportedFunction("vhacd_n_hulls"),
		fnSizes:   mod.ExportedFunction("vhacd_hull_sizes"),
		fnCopy:    mod.ExportedFunction("vhacd_hull_copy"),
		fnClean:   mod.ExportedFunction("vhacd_clean"),
		fnRelease: mod.ExportedFunction("vhacd_release"),
	}

	res, err := mod.ExportedFunction("vhacd_create").Call(e.ctx(nil))
	if err != nil {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("%w: vhacd_create: %w", ErrGuestFault, err)
	}
	e.handle = api.DecodeU32(res[0])
	if e.handle == 0 {
		_ = mod.Close(ctx)
		return nil, fmt.Errorf("%w: vhacd_create returned a null handle", ErrGuestFault)
	}

	e.logger.Debug("Created wasm decomposition instance")
	return e, nil
}

func (e *Engine) ctx(params *native.Parameters) context.Context {
	return context.WithValue(context.Background(), callKey{}, &call{engine: e, params: params})
}

func (e *Engine) malloc(size int) (uint32, error) {
	if size < 0 || uint64(size) > math.MaxUint32 {
		return 0, native.ErrOutOfMemory
	}
	res, err := e.fnMalloc.Call(e.ctx(nil), api.EncodeU32(uint32(size)))
	if err != nil {
		return 0, fmt.Errorf("%w: malloc: %w", ErrGuestFault, err)
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, native.ErrOutOfMemory
	}
	return ptr, nil
}

func (e *Engine) free(ptr uint32) error {
	if _, err := e.fnFree.Call(e.ctx(nil), api.EncodeU32(ptr)); err != nil {
		return fmt.Errorf("%w: free: %w", ErrGuestFault, err)
	}
	return nil
}

func (e *Engine) ownFloats(b native.FloatBuffer) (*guestFloats, bool) {
	g, ok := b.(*guestFloats)
	return g, ok && g.owner == e && !g.freed
}

func (e *Engine) ownInts(b native.IntBuffer) (*guestInts, bool) {
	g, ok := b.(*guestInts)
	return g, ok && g.owner == e && !g.freed
}

// Compute copies the parameter block into the guest and runs vhacd_compute.
// A trap is reported as ErrGuestFault.
func (e *Engine) Compute(points native.FloatBuffer, stridePoints, countPoints uint32,
	triangles native.IntBuffer, strideTriangles, countTriangles uint32,
	params *native.Parameters) (bool, error) {

	pts, ok := e.ownFloats(points)
	if !ok {
		return false, ErrForeignBuffer
	}
	tris, ok := e.ownInts(triangles)
	if !ok {
		return false, ErrForeignBuffer
	}

	block := encodeParameters(params)
	pptr, err := e.malloc(len(block))
	if err != nil {
		return false, err
	}
	defer func() {
		if ferr := e.free(pptr); ferr != nil {
			e.logger.Warn("Failed to free parameter block", zap.Error(ferr))
		}
	}()
	if !e.mod.Memory().Write(pptr, block) {
		return false, fmt.Errorf("%w: write parameter block", ErrGuestFault)
	}

	res, err := e.fnCompute.Call(e.ctx(params),
		api.EncodeU32(e.handle),
		api.EncodeU32(pts.ptr), api.EncodeU32(stridePoints), api.EncodeU32(countPoints),
		api.EncodeU32(tris.ptr), api.EncodeU32(strideTriangles), api.EncodeU32(countTriangles),
		api.EncodeU32(pptr))
	if err != nil {
		return false, fmt.Errorf("%w: vhacd_compute: %w", ErrGuestFault, err)
	}
	return api.DecodeU32(res[0]) != 0, nil
}

// Cancel raises the flag the guest polls through vhacd_cancelled.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

// NConvexHulls asks the guest for its result count. A trap reads as zero.
func (e *Engine) NConvexHulls() uint32 {
	res, err := e.fnNHulls.Call(e.ctx(nil), api.EncodeU32(e.handle))
	if err != nil {
		e.logger.Error("vhacd_n_hulls trapped", zap.Error(err))
		return 0
	}
	return api.DecodeU32(res[0])
}

// ConvexHull copies hull index out of guest memory.
func (e *Engine) ConvexHull(index uint32, out *native.Hull) error {
	ctx := e.ctx(nil)
	mem := e.mod.Memory()

	scratch, err := e.malloc(8)
	if err != nil {
		return err
	}
	defer e.free(scratch) //nolint:errcheck

	if _, err := e.fnSizes.Call(ctx, api.EncodeU32(e.handle), api.EncodeU32(index), api.EncodeU32(scratch)); err != nil {
		return fmt.Errorf("%w: vhacd_hull_sizes: %w", ErrGuestFault, err)
	}
	nPoints, ok1 := mem.ReadUint32Le(scratch)
	nTris, ok2 := mem.ReadUint32Le(scratch + 4)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: read hull sizes", ErrGuestFault)
	}

	pointsBytes := int(nPoints) * 3 * 8
	trisBytes := int(nTris) * 3 * 4
	const infoBytes = 4 * 8
	// Keep the float64 regions 8-byte aligned.
	trisOff := pointsBytes
	infoOff := (trisOff + trisBytes + 7) &^ 7
	block, err := e.malloc(infoOff + infoBytes)
	if err != nil {
		return err
	}
	defer e.free(block) //nolint:errcheck

	if _, err := e.fnCopy.Call(ctx, api.EncodeU32(e.handle), api.EncodeU32(index),
		api.EncodeU32(block), api.EncodeU32(block+uint32(trisOff)), api.EncodeU32(block+uint32(infoOff))); err != nil {
		return fmt.Errorf("%w: vhacd_hull_copy: %w", ErrGuestFault, err)
	}

	raw, ok := mem.Read(block, uint32(infoOff+infoBytes))
	if !ok {
		return fmt.Errorf("%w: read hull %d", ErrGuestFault, index)
	}
	decodeHull(raw, int(nPoints), int(nTris), trisOff, infoOff, out)
	return nil
}

// decodeHull unpacks a hull copied by vhacd_hull_copy. raw is the guest
// block; the result never aliases it.
func decodeHull(raw []byte, nPoints, nTris, trisOff, infoOff int, out *native.Hull) {
	le := binary.LittleEndian
	out.Points = make([]float64, nPoints*3)
	for i := range out.Points {
		out.Points[i] = math.Float64frombits(le.Uint64(raw[i*8:]))
	}
	out.Triangles = make([]int32, nTris*3)
	for i := range out.Triangles {
		out.Triangles[i] = int32(le.Uint32(raw[trisOff+i*4:]))
	}
	out.Volume = math.Float64frombits(le.Uint64(raw[infoOff:]))
	for i := 0; i < 3; i++ {
		out.Center[i] = math.Float64frombits(le.Uint64(raw[infoOff+8+i*8:]))
	}
}

// Clean drops the guest's result set and any pending cancellation.
func (e *Engine) Clean() {
	if _, err := e.fnClean.Call(e.ctx(nil), api.EncodeU32(e.handle)); err != nil {
		e.logger.Error("vhacd_clean trapped", zap.Error(err))
	}
	e.cancelled.Store(false)
}

// Release destroys the handle and closes the guest instance.
func (e *Engine) Release() error {
	if e.released {
		return nil
	}
	e.released = true

	var err error
	if _, cerr := e.fnRelease.Call(e.ctx(nil), api.EncodeU32(e.handle)); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: vhacd_release: %w", ErrGuestFault, cerr))
	}
	err = multierr.Append(err, e.mod.Close(context.Background()))
	if err == nil {
		e.logger.Debug("Released wasm decomposition instance")
	}
	return err
}
