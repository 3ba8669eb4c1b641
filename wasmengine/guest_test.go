package wasmengine

import (
	"encoding/binary"
	"math"
)

// testGuest assembles a small module implementing the guest ABI.
//
// Memory layout (one page):
//
//	0   hull count
//	4   points ptr, 8 stride, 12 count
//	16  triangles ptr, 20 stride, 24 count
//	28  released flag
//	32  number of free calls
//	64  "guest compute"
//	1024 heap, bump allocated in 8-byte steps; free only counts
//
// vhacd_compute logs, reports progress (Concavity, Alpha, Resolution from the
// parameter block), polls vhacd_cancelled and records the mesh; the single
// hull is the input mesh widened to float64 with volume 1 and center 0.5.
// A Depth of 99 makes it trap.
func testGuest() []byte {
	const (
		fnCancelled = iota
		fnProgress
		fnLog
		fnMalloc
		fnFree
		fnCreate
		fnCompute
		fnNHulls
		fnSizes
		fnCopy
		fnClean
		fnRelease
	)
	const (
		tVoidI32 = iota
		tProgress
		tLog
		tI32I32
		tI32Void
		tCompute
		tSizes
		tCopy
	)
	i32, f64 := byte(0x7f), byte(0x7c)
	rep := func(b byte, n int) []byte {
		out := make([]byte, n)
		for i := range out {
			out[i] = b
		}
		return out
	}

	types := section(1,
		functype(nil, []byte{i32}),
		functype([]byte{f64, f64, f64}, nil),
		functype([]byte{i32, i32}, nil),
		functype([]byte{i32}, []byte{i32}),
		functype([]byte{i32}, nil),
		functype(rep(i32, 8), []byte{i32}),
		functype(rep(i32, 3), nil),
		functype(rep(i32, 5), nil),
	)
	imports := section(2,
		cat(name(hostModule), name("vhacd_cancelled"), []byte{0x00}, uleb(tVoidI32)),
		cat(name(hostModule), name("vhacd_progress"), []byte{0x00}, uleb(tProgress)),
		cat(name(hostModule), name("vhacd_log"), []byte{0x00}, uleb(tLog)),
	)
	funcs := section(3,
		uleb(tI32I32),  // malloc
		uleb(tI32Void), // free
		uleb(tVoidI32), // vhacd_create
		uleb(tCompute), // vhacd_compute
		uleb(tI32I32),  // vhacd_n_hulls
		uleb(tSizes),   // vhacd_hull_sizes
		uleb(tCopy),    // vhacd_hull_copy
		uleb(tI32Void), // vhacd_clean
		uleb(tI32Void), // vhacd_release
	)
	memory := section(5, []byte{0x00, 0x01})
	globals := section(6, cat([]byte{i32, 0x01}, i32c(1024), []byte{opEnd}))
	exports := section(7,
		cat(name("memory"), []byte{0x02}, uleb(0)),
		cat(name("malloc"), []byte{0x00}, uleb(fnMalloc)),
		cat(name("free"), []byte{0x00}, uleb(fnFree)),
		cat(name("vhacd_create"), []byte{0x00}, uleb(fnCreate)),
		cat(name("vhacd_compute"), []byte{0x00}, uleb(fnCompute)),
		cat(name("vhacd_n_hulls"), []byte{0x00}, uleb(fnNHulls)),
		cat(name("vhacd_hull_sizes"), []byte{0x00}, uleb(fnSizes)),
		cat(name("vhacd_hull_copy"), []byte{0x00}, uleb(fnCopy)),
		cat(name("vhacd_clean"), []byte{0x00}, uleb(fnClean)),
		cat(name("vhacd_release"), []byte{0x00}, uleb(fnRelease)),
	)

	malloc := body([]byte{0x01, 0x01, i32}, // local 1: ptr
		globalGet(0), localSet(1),
		globalGet(0), localGet(0), op(opI32Add), i32c(7), op(opI32Add), i32c(-8), op(opI32And), globalSet(0),
		globalGet(0), i32c(65536), op(opI32GtU),
		op(opIf, blockEmpty),
		localGet(1), globalSet(0), i32c(0), op(opReturn),
		op(opEnd),
		localGet(1),
	)
	free := body(nil,
		i32c(0), i32c(0), load32(32), i32c(1), op(opI32Add), store32(32),
	)
	create := body(nil, i32c(7))

	compute := body(nil,
		i32c(64), i32c(13), callFn(fnLog),
		localGet(7), loadF64(0),
		localGet(7), loadF64(8),
		localGet(7), load32(48), op(opF64ConvertI32U),
		callFn(fnProgress),
		localGet(7), load32(60), i32c(99), op(opI32Eq),
		op(opIf, blockEmpty), op(opUnreachable), op(opEnd),
		callFn(fnCancelled),
		op(opIf, blockEmpty),
		i32c(0), i32c(0), store32(0), i32c(0), op(opReturn),
		op(opEnd),
		i32c(0), localGet(1), store32(4),
		i32c(0), localGet(2), store32(8),
		i32c(0), localGet(3), store32(12),
		i32c(0), localGet(4), store32(16),
		i32c(0), localGet(5), store32(20),
		i32c(0), localGet(6), store32(24),
		i32c(0), i32c(1), store32(0),
		i32c(1),
	)
	nHulls := body(nil, i32c(0), load32(0))
	sizes := body(nil,
		localGet(2), i32c(0), load32(12), store32(0),
		localGet(2), i32c(0), load32(24), store32(4),
	)

	// srcAddr pushes base + ((i/3)*stride + i%3)*4 for loop counter local 5.
	srcAddr := func(baseOff, strideOff uint32) []byte {
		return cat(
			i32c(0), load32(baseOff),
			localGet(5), i32c(3), op(opI32DivU), i32c(0), load32(strideOff), op(opI32Mul),
			localGet(5), i32c(3), op(opI32RemU), op(opI32Add),
			i32c(4), op(opI32Mul), op(opI32Add),
		)
	}
	// loop runs step with local 5 counting from 0 to 3*count.
	loop := func(countOff uint32, step ...[]byte) []byte {
		return cat(
			i32c(0), load32(countOff), i32c(3), op(opI32Mul), localSet(6),
			i32c(0), localSet(5),
			op(opBlock, blockEmpty), op(opLoop, blockEmpty),
			localGet(5), localGet(6), op(opI32GeU), op(opBrIf, 1),
			cat(step...),
			localGet(5), i32c(1), op(opI32Add), localSet(5),
			op(opBr, 0),
			op(opEnd), op(opEnd),
		)
	}
	hullCopy := body([]byte{0x01, 0x02, i32}, // locals 5: i, 6: n
		loop(12,
			localGet(2), localGet(5), i32c(8), op(opI32Mul), op(opI32Add),
			srcAddr(4, 8), loadF32(0), op(opF64PromoteF32),
			storeF64(0),
		),
		loop(24,
			localGet(3), localGet(5), i32c(4), op(opI32Mul), op(opI32Add),
			srcAddr(16, 20), load32(0),
			store32(0),
		),
		localGet(4), f64c(1), storeF64(0),
		localGet(4), f64c(0.5), storeF64(8),
		localGet(4), f64c(0.5), storeF64(16),
		localGet(4), f64c(0.5), storeF64(24),
	)
	clean := body(nil, i32c(0), i32c(0), store32(0))
	release := body(nil, i32c(0), i32c(1), store32(28))

	code := section(10, malloc, free, create, compute, nHulls, sizes, hullCopy, clean, release)
	data := section(11, cat([]byte{0x00}, i32c(64), []byte{opEnd}, name("guest compute")))

	return cat([]byte("\x00asm\x01\x00\x00\x00"), types, imports, funcs, memory, globals, exports, code, data)
}

const (
	opUnreachable    = 0x00
	opBlock          = 0x02
	opLoop           = 0x03
	opIf             = 0x04
	opEnd            = 0x0b
	opBr             = 0x0c
	opBrIf           = 0x0d
	opReturn         = 0x0f
	opI32Eq          = 0x46
	opI32GtU         = 0x4b
	opI32GeU         = 0x4f
	opI32Add         = 0x6a
	opI32Mul         = 0x6c
	opI32DivU        = 0x6e
	opI32RemU        = 0x70
	opI32And         = 0x71
	opF64ConvertI32U = 0xb8
	opF64PromoteF32  = 0xbb

	blockEmpty = 0x40
)

func op(b ...byte) []byte { return b }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func vec(items ...[]byte) []byte {
	return cat(uleb(uint64(len(items))), cat(items...))
}

func section(id byte, items ...[]byte) []byte {
	content := vec(items...)
	return cat([]byte{id}, uleb(uint64(len(content))), content)
}

func name(s string) []byte { return cat(uleb(uint64(len(s))), []byte(s)) }

func functype(params, results []byte) []byte {
	return cat([]byte{0x60}, uleb(uint64(len(params))), params, uleb(uint64(len(results))), results)
}

// body encodes a code entry. locals is the raw local declaration vector;
// nil declares none.
func body(locals []byte, instrs ...[]byte) []byte {
	if locals == nil {
		locals = []byte{0x00}
	}
	fn := cat(locals, cat(instrs...), []byte{opEnd})
	return cat(uleb(uint64(len(fn))), fn)
}

func i32c(v int32) []byte { return cat([]byte{0x41}, sleb(int64(v))) }

func f64c(v float64) []byte {
	b := make([]byte, 9)
	b[0] = 0x44
	binary.LittleEndian.PutUint64(b[1:], math.Float64bits(v))
	return b
}

func localGet(i uint32) []byte  { return cat([]byte{0x20}, uleb(uint64(i))) }
func localSet(i uint32) []byte  { return cat([]byte{0x21}, uleb(uint64(i))) }
func globalGet(i uint32) []byte { return cat([]byte{0x23}, uleb(uint64(i))) }
func globalSet(i uint32) []byte { return cat([]byte{0x24}, uleb(uint64(i))) }
func callFn(i uint32) []byte    { return cat([]byte{0x10}, uleb(uint64(i))) }

func load32(off uint32) []byte   { return cat([]byte{0x28, 0x02}, uleb(uint64(off))) }
func loadF32(off uint32) []byte  { return cat([]byte{0x2a, 0x02}, uleb(uint64(off))) }
func loadF64(off uint32) []byte  { return cat([]byte{0x2b, 0x03}, uleb(uint64(off))) }
func store32(off uint32) []byte  { return cat([]byte{0x36, 0x02}, uleb(uint64(off))) }
func storeF64(off uint32) []byte { return cat([]byte{0x39, 0x03}, uleb(uint64(off))) }
