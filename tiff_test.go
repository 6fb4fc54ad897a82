// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

// tiffHeader emits the byte-order mark, magic and root-IFD offset.
func tiffHeader(w *writer, rootOffset uint32) {
	if w.order == binary.LittleEndian {
		w.bytes([]byte("II"))
	} else {
		w.bytes([]byte("MM"))
	}
	w.u16(0x002a)
	w.u32(rootOffset)
}

// putEntry writes one 12-byte directory entry. inline must write
// exactly the payload bytes; it is padded to 4.
func putEntry(w *writer, tag uint16, typ dataType, count uint32, inline func(*writer)) {
	w.u16(tag)
	w.u16(uint16(typ))
	w.u32(count)
	start := w.pos()
	inline(w)
	for w.pos() < start+4 {
		w.u8(0)
	}
	if w.pos() != start+4 {
		panic("inline value wider than 4 bytes")
	}
}

func TestMinimalTIFF(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(0) // zero entries
	w.u32(0) // end of chain

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.FileType, qt.Equals, FileTypeTIFF)
	c.Assert(d.NumImages, qt.Equals, 1)
	c.Assert(d.Warnings, qt.HasLen, 0)
	c.Assert(d.Make.IsSet, qt.IsFalse)
	c.Assert(d.DateTime.IsSet, qt.IsFalse)
	c.Assert(d.FullResolutionImage(), qt.IsNil)
}

// buildSimpleTIFF emits a root directory with a make string, an
// orientation and an x-resolution in the given byte order.
func buildSimpleTIFF(order binary.ByteOrder) []byte {
	w := newWriter(order)
	tiffHeader(w, 8)

	// IFD at 8 with 3 entries: data section begins at 8+2+36+4 = 50.
	const dataStart = 50
	w.u16(3)
	putEntry(w, 0x010f, dtASCII, 7, func(w *writer) { w.u32(dataStart) })
	putEntry(w, 0x0112, dtShort, 1, func(w *writer) { w.u16(uint16(OrientationRotate90CW)) })
	putEntry(w, 0x011a, dtRational, 1, func(w *writer) { w.u32(dataStart + 7) })
	w.u32(0)

	w.bytes([]byte("CanonX\x00"))
	w.u32(300)
	w.u32(1)
	return w.buf
}

func TestEndianRobustness(t *testing.T) {
	c := qt.New(t)

	little, err := Read(buildSimpleTIFF(binary.LittleEndian), Options{})
	c.Assert(err, qt.IsNil)
	big, err := Read(buildSimpleTIFF(binary.BigEndian), Options{})
	c.Assert(err, qt.IsNil)

	c.Assert(little.String(little.Make.Value), qt.Equals, "CanonX")
	c.Assert(little.Images[0].Orientation.Value, qt.Equals, OrientationRotate90CW)
	c.Assert(little.Images[0].XResolution.Value, qt.Equals, NewRat[uint32](300, 1))

	diff := cmp.Diff(little, big, cmp.AllowUnexported(ExifData{}))
	c.Assert(diff, qt.Equals, "")
}

func TestMaliciousOffset(t *testing.T) {
	c := qt.New(t)

	build := func() []byte {
		w := newWriter(binary.LittleEndian)
		tiffHeader(w, 8)
		w.u16(1)
		// Rational array pointing 4 bytes before the end of the file:
		// 100 elements cannot fit.
		putEntry(w, 0x011a, dtRational, 100, func(w *writer) { w.u32(0) })
		w.u32(0)
		end := uint32(w.pos())
		w.order.PutUint32(w.buf[18:22], end-4)
		return w.buf
	}

	_, err := Read(build(), Options{Strict: true})
	c.Assert(err, qt.IsNotNil)
	perr := err.(*ParseError)
	c.Assert(perr.Code, qt.Equals, CorruptData)

	d, err := Read(build(), Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Images[0].XResolution.IsSet, qt.IsFalse)
	c.Assert(len(d.Warnings) > 0, qt.IsTrue)
}

func TestDirectoryChainLimit(t *testing.T) {
	c := qt.New(t)

	build := func(n int) []byte {
		w := newWriter(binary.LittleEndian)
		tiffHeader(w, 8)
		// n empty directories, each 6 bytes, chained.
		for i := 0; i < n; i++ {
			w.u16(0)
			if i < n-1 {
				w.u32(uint32(8 + 6*(i+1)))
			} else {
				w.u32(0)
			}
		}
		return w.buf
	}

	d, err := Read(build(5), Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.NumImages, qt.Equals, 5)
	c.Assert(d.Warnings, qt.HasLen, 0)

	d, err = Read(build(6), Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.NumImages, qt.Equals, 5)
	c.Assert(len(d.Warnings) > 0, qt.IsTrue)
}

func TestSubIFDChain(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)

	// Root IFD at 8: one SubIFDs pointer. 8+2+12+4 = 26.
	w.u16(1)
	putEntry(w, tagSubIFDs, dtLong, 1, func(w *writer) { w.u32(26) })
	w.u32(0)

	// Sub-IFD one at 26: full resolution, chained to 44.
	w.u16(1)
	putEntry(w, tagSubfileType, dtLong, 1, func(w *writer) { w.u32(0) })
	w.u32(44)

	// Sub-IFD two at 44: reduced resolution, end of chain.
	w.u16(1)
	putEntry(w, tagSubfileType, dtLong, 1, func(w *writer) { w.u32(1) })
	w.u32(0)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.NumImages, qt.Equals, 3)
	c.Assert(d.Images[0].Role, qt.Equals, RoleNone)
	c.Assert(d.Images[1].Role, qt.Equals, RoleFullResolution)
	c.Assert(d.Images[2].Role, qt.Equals, RoleReducedResolution)
	c.Assert(d.FullResolutionImage(), qt.Equals, &d.Images[1])
}

func TestEmptyPayloadDecodesToUnsetTag(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(1)
	putEntry(w, 0x010f, dtASCII, 0, func(w *writer) {})
	w.u32(0)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Make.IsSet, qt.IsFalse)
}

func TestStringInlineBoundary(t *testing.T) {
	c := qt.New(t)

	// Count 4 ("abc" + NUL) fits the inline field; count 5 ("abcd" +
	// NUL) is forced out of line.
	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	// 8+2+24+4 = 38.
	w.u16(2)
	putEntry(w, 0x010f, dtASCII, 4, func(w *writer) { w.bytes([]byte("abc\x00")) })
	putEntry(w, 0x0110, dtASCII, 5, func(w *writer) { w.u32(38) })
	w.u32(0)
	w.bytes([]byte("abcd\x00"))

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.String(d.Make.Value), qt.Equals, "abc")
	c.Assert(d.String(d.Model.Value), qt.Equals, "abcd")
}

func TestZeroDenominatorRational(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(1)
	putEntry(w, 0x011a, dtRational, 1, func(w *writer) { w.u32(26) })
	w.u32(0)
	w.u32(1)
	w.u32(0)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Images[0].XResolution.Value, qt.Equals, NewRat[uint32](1, 0))
	c.Assert(d.Images[0].XResolution.Value.Float64() > 0, qt.IsTrue) // +Inf
}

func TestScalarTypeFits(t *testing.T) {
	c := qt.New(t)

	// ImageWidth is declared LONG; a SHORT still fits, with a warning.
	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(1)
	putEntry(w, 0x0100, dtShort, 1, func(w *writer) { w.u16(4928) })
	w.u32(0)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Images[0].ImageWidth.Value, qt.Equals, uint32(4928))
	c.Assert(len(d.Warnings), qt.Equals, 1)
}

func TestTypeMismatchIgnoresEntry(t *testing.T) {
	c := qt.New(t)

	build := func() []byte {
		w := newWriter(binary.LittleEndian)
		tiffHeader(w, 8)
		w.u16(1)
		// XResolution declared RATIONAL, stored as ASCII: neither
		// matches nor fits.
		putEntry(w, 0x011a, dtASCII, 4, func(w *writer) { w.bytes([]byte("300\x00")) })
		w.u32(0)
		return w.buf
	}

	d, err := Read(build(), Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Images[0].XResolution.IsSet, qt.IsFalse)
	c.Assert(len(d.Warnings), qt.Equals, 1)

	_, err = Read(build(), Options{Strict: true})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.(*ParseError).Code, qt.Equals, CorruptData)
}

func TestLastWriteWins(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)

	// Root IFD at 8 with focal length and the EXIF pointer:
	// 8+2+24+4 = 38, data 38..46, EXIF IFD at 46.
	w.u16(2)
	putEntry(w, 0x920a, dtRational, 1, func(w *writer) { w.u32(38) })
	putEntry(w, tagExifOffset, dtLong, 1, func(w *writer) { w.u32(46) })
	w.u32(0)
	w.u32(50)
	w.u32(1)

	// EXIF IFD at 46: 46+2+12+4 = 64, data at 64.
	w.u16(1)
	putEntry(w, 0x920a, dtRational, 1, func(w *writer) { w.u32(64) })
	w.u32(0)
	w.u32(35)
	w.u32(1)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	// The EXIF sub-IFD drains after the root chain, so its value is
	// the one that sticks.
	c.Assert(d.Exif.FocalLength.Value, qt.Equals, NewRat[uint32](35, 1))
	c.Assert(d.Exif.FocalLength.ParsedFrom, qt.Equals, uint16(0x920a))
}

func TestSubSecBeforeDateTime(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)

	// Root IFD at 8: EXIF pointer only. 8+2+12+4 = 26.
	w.u16(1)
	putEntry(w, tagExifOffset, dtLong, 1, func(w *writer) { w.u32(26) })
	w.u32(0)

	// EXIF IFD at 26 with the sub-second entry preceding its
	// date-time: 26+2+24+4 = 56, data at 56.
	w.u16(2)
	putEntry(w, tagSubSecTimeOriginal, dtASCII, 3, func(w *writer) { w.bytes([]byte("12\x00")) })
	putEntry(w, 0x9003, dtASCII, 20, func(w *writer) { w.u32(56) })
	w.u32(0)
	w.bytes([]byte("2025:08:26 10:00:00\x00"))

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Exif.DateTimeOriginal.IsSet, qt.IsTrue)
	c.Assert(d.Exif.DateTimeOriginal.Value.Year, qt.Equals, int32(2025))
	c.Assert(d.Exif.DateTimeOriginal.Value.Millis, qt.Equals, uint16(120))
}

func TestArenaOverflow(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(1)
	const n = stringArenaSize + 64
	putEntry(w, 0x010f, dtASCII, n, func(w *writer) { w.u32(26) })
	w.u32(0)
	for i := 0; i < n; i++ {
		w.u8('x')
	}

	_, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.(*ParseError).Code, qt.Equals, InternalError)
}

func TestTagProvenance(t *testing.T) {
	c := qt.New(t)

	d, err := Read(buildSimpleTIFF(binary.LittleEndian), Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Make.IsSet, qt.IsTrue)
	c.Assert(d.Make.ParsedFrom, qt.Equals, uint16(0x010f))
	c.Assert(d.Model.IsSet, qt.IsFalse)
	c.Assert(d.Model.ParsedFrom, qt.Equals, uint16(0))
	c.Assert(d.Model.Value, qt.Equals, CharData{})
}

func TestUnknownTagsAreSkippedSilently(t *testing.T) {
	c := qt.New(t)

	w := newWriter(binary.LittleEndian)
	tiffHeader(w, 8)
	w.u16(1)
	putEntry(w, 0xeeee, dtShort, 1, func(w *writer) { w.u16(7) })
	w.u32(0)

	d, err := Read(w.buf, Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Warnings, qt.HasLen, 0)
}
