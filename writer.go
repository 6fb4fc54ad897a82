// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import "encoding/binary"

// writer is a growing byte buffer with positioned overwrites, used by
// the serializer. All multi-byte writes honor order.
type writer struct {
	buf   []byte
	order binary.ByteOrder
}

func newWriter(order binary.ByteOrder) *writer {
	return &writer{order: order}
}

func (w *writer) pos() int {
	return len(w.buf)
}

func (w *writer) u8(v uint8) int {
	p := w.pos()
	w.buf = append(w.buf, v)
	return p
}

func (w *writer) u16(v uint16) int {
	p := w.pos()
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return p
}

func (w *writer) u32(v uint32) int {
	p := w.pos()
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return p
}

func (w *writer) s32(v int32) int {
	return w.u32(uint32(v))
}

func (w *writer) bytes(b []byte) int {
	p := w.pos()
	w.buf = append(w.buf, b...)
	return p
}

func (w *writer) overwriteU32(pos int, v uint32) {
	w.order.PutUint32(w.buf[pos:pos+4], v)
}

func (w *writer) readU16At(pos int) uint16 {
	return w.order.Uint16(w.buf[pos : pos+2])
}

func (w *writer) readU32At(pos int) uint32 {
	return w.order.Uint32(w.buf[pos : pos+4])
}
