// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNikonLensName(t *testing.T) {
	c := qt.New(t)

	zoom := [4]Rat[uint32]{{18, 1}, {55, 1}, {35, 10}, {56, 10}}
	prime := [4]Rat[uint32]{{50, 1}, {50, 1}, {14, 10}, {14, 10}}

	c.Assert(nikonLensName(0x8c, zoom), qt.Equals, "AF-P 18-55mm f/3.5-5.6G VR")
	c.Assert(nikonLensName(0x02, zoom), qt.Equals, "AF 18-55mm f/3.5-5.6D")
	c.Assert(nikonLensName(0x01, prime), qt.Equals, "MF 50mm f/1.4")
	c.Assert(nikonLensName(0x41, prime), qt.Equals, "MF 50mm f/1.4E")
}

// buildNikonBlob assembles a maker-note blob: magic, version header and
// an embedded little-endian TIFF stream.
func buildNikonBlob() []byte {
	inner := newWriter(binary.LittleEndian)
	inner.bytes([]byte("II"))
	inner.u16(0x002a)
	inner.u32(8)
	// IFD at 8 with 3 entries: data section at 8+2+36+4 = 50.
	inner.u16(3)
	putEntry(inner, nikonTagISO, dtShort, 2, func(w *writer) { w.u16(0); w.u16(640) })
	putEntry(inner, nikonTagLensType, dtByte, 1, func(w *writer) { w.u8(0x8c) })
	putEntry(inner, nikonTagLensSpec, dtRational, 4, func(w *writer) { w.u32(50) })
	inner.u32(0)
	for _, r := range [4]Rat[uint32]{{18, 1}, {55, 1}, {35, 10}, {56, 10}} {
		inner.u32(r.Num)
		inner.u32(r.Den)
	}

	blob := []byte("Nikon\x00")
	blob = append(blob, 0x02, 0x10, 0x00, 0x00)
	return append(blob, inner.buf...)
}

func TestNikonMakerNote(t *testing.T) {
	c := qt.New(t)

	blob := buildNikonBlob()

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	// Root IFD at 8: EXIF pointer. Ends at 26.
	w.u16(1)
	putEntry(w, tagExifOffset, dtLong, 1, func(w *writer) { w.u32(26) })
	w.u32(0)
	// EXIF IFD at 26: the maker-note blob reference. Ends at 44.
	w.u16(1)
	putEntry(w, tagMakerNote, dtUndefined, uint32(len(blob)), func(w *writer) { w.u32(44) })
	w.u32(0)
	w.bytes(blob)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Warnings, qt.HasLen, 0)
	c.Assert(d.Exif.ISO.Value, qt.Equals, uint16(640))
	c.Assert(d.Exif.LensSpecification.Value, qt.Equals,
		[4]Rat[uint32]{{18, 1}, {55, 1}, {35, 10}, {56, 10}})
	c.Assert(d.String(d.Exif.LensModel.Value), qt.Equals, "AF-P 18-55mm f/3.5-5.6G VR")
}

func TestUnknownMakerNoteWarnsInLenientMode(t *testing.T) {
	c := qt.New(t)

	blob := []byte("Canon\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(1)
	putEntry(w, tagMakerNote, dtUndefined, uint32(len(blob)), func(w *writer) { w.u32(26) })
	w.u32(0)
	w.bytes(blob)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(len(d.Warnings) > 0, qt.IsTrue)

	_, err = Read(w.buf, Options{Strict: true})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.(*ParseError).Code, qt.Equals, UnknownFileType)
}
