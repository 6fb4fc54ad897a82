// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"encoding/binary"
	"math"
)

// parseAbort carries a ParseError up the stack when a cursor read fails.
// It never escapes the package; catchParse recovers it.
type parseAbort struct {
	err *ParseError
}

// catchParse runs f and converts a parseAbort panic into the ParseError
// it carries. Other panics are re-raised.
func catchParse(f func()) (err *ParseError) {
	defer func() {
		if rec := recover(); rec != nil {
			if ab, ok := rec.(parseAbort); ok {
				err = ab.err
				return
			}
			panic(rec)
		}
	}()
	f()
	return nil
}

func abortParse(code ErrorCode, msg, what string) {
	panic(parseAbort{newParseError(code, msg, what)})
}

// byteReader is a bounds-checked cursor over an immutable byte slice.
// All multi-byte reads honor byteOrder. Any out-of-range access unwinds
// with a CorruptData parseAbort; the public entry points recover it.
//
// Not safe for concurrent use.
type byteReader struct {
	data      []byte
	off       int
	byteOrder binary.ByteOrder
}

func newByteReader(data []byte, byteOrder binary.ByteOrder) *byteReader {
	return &byteReader{data: data, byteOrder: byteOrder}
}

func (r *byteReader) len() int {
	return len(r.data)
}

func (r *byteReader) pos() int {
	return r.off
}

func (r *byteReader) seek(off int) {
	if off < 0 || off > len(r.data) {
		abortParse(CorruptData, "seek out of bounds", "")
	}
	r.off = off
}

func (r *byteReader) skip(n int) {
	r.seek(r.off + n)
}

func (r *byteReader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		abortParse(CorruptData, "read out of bounds", "")
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// view returns a sub-slice without moving the cursor.
func (r *byteReader) view(off, n int) []byte {
	if off < 0 || n < 0 || off+n > len(r.data) {
		abortParse(CorruptData, "view out of bounds", "")
	}
	return r.data[off : off+n]
}

// sub returns a new cursor over [off, off+n) with the same byte order.
// Children never move the parent cursor.
func (r *byteReader) sub(off, n int) *byteReader {
	return newByteReader(r.view(off, n), r.byteOrder)
}

func (r *byteReader) u8() uint8   { return r.take(1)[0] }
func (r *byteReader) s8() int8    { return int8(r.u8()) }
func (r *byteReader) u16() uint16 { return r.byteOrder.Uint16(r.take(2)) }
func (r *byteReader) s16() int16  { return int16(r.u16()) }
func (r *byteReader) u32() uint32 { return r.byteOrder.Uint32(r.take(4)) }
func (r *byteReader) s32() int32  { return int32(r.u32()) }
func (r *byteReader) u64() uint64 { return r.byteOrder.Uint64(r.take(8)) }
func (r *byteReader) s64() int64  { return int64(r.u64()) }

func (r *byteReader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *byteReader) f64() float64 {
	return math.Float64frombits(r.u64())
}

// read4 fills dst with the next 4 bytes in stream order, without
// byte-swapping. Used for the inline value field of an IFD entry.
func (r *byteReader) read4(dst *[4]byte) {
	copy(dst[:], r.take(4))
}
