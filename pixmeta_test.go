// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixmeta/pixmeta"

	qt "github.com/frankban/quicktest"
)

// embeddedTIFF is a small authored TIFF stream used as the payload of
// the container tests.
func embeddedTIFF(c *qt.C) []byte {
	d := &pixmeta.ExifData{}
	cd, err := d.StoreString("Fujifilm")
	c.Assert(err, qt.Equals, (*pixmeta.ParseError)(nil))
	d.Make.Set(cd, 0)
	d.Exif.ISO.Set(800, 0)
	return pixmeta.WriteTIFF(d)
}

func TestReadJPEGWithLeadingSegments(t *testing.T) {
	c := qt.New(t)

	d := &pixmeta.ExifData{}
	cd, serr := d.StoreString("Nikon")
	c.Assert(serr, qt.Equals, (*pixmeta.ParseError)(nil))
	d.Make.Set(cd, 0)
	app1 := pixmeta.WriteJPEGApp1(d)

	// SOI, an APP0 segment, the APP1, EOI.
	jpg := []byte{0xff, 0xd8}
	jpg = append(jpg, 0xff, 0xe0, 0x00, 0x06, 'J', 'F', 'I', 'F')
	jpg = append(jpg, app1...)
	jpg = append(jpg, 0xff, 0xd9)

	got, err := pixmeta.Read(jpg, pixmeta.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(got.FileType, qt.Equals, pixmeta.FileTypeJPEG)
	c.Assert(got.String(got.Make.Value), qt.Equals, "Nikon")
}

func TestReadRAF(t *testing.T) {
	c := qt.New(t)

	tiff := embeddedTIFF(c)

	const tiffAt = 100
	buf := make([]byte, tiffAt, tiffAt+len(tiff))
	copy(buf, "FUJIFILMCCD-RAW 0201FF393103")
	binary.BigEndian.PutUint32(buf[0x54:], tiffAt)
	binary.BigEndian.PutUint32(buf[0x58:], uint32(len(tiff)))
	buf = append(buf, tiff...)

	got, err := pixmeta.Read(buf, pixmeta.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(got.FileType, qt.Equals, pixmeta.FileTypeRAF)
	c.Assert(got.String(got.Make.Value), qt.Equals, "Fujifilm")
	c.Assert(got.Exif.ISO.Value, qt.Equals, uint16(800))
}

func TestReadMRW(t *testing.T) {
	c := qt.New(t)

	tiff := embeddedTIFF(c)

	var buf []byte
	buf = append(buf, 0x00, 'M', 'R', 'M')
	headerLen := (8 + 8) + (8 + len(tiff))
	buf = binary.BigEndian.AppendUint32(buf, uint32(headerLen))
	// A leading PRD block, then the TTW block carrying the TIFF.
	buf = append(buf, 0x00, 'P', 'R', 'D')
	buf = binary.BigEndian.AppendUint32(buf, 8)
	buf = append(buf, make([]byte, 8)...)
	buf = append(buf, 0x00, 'T', 'T', 'W')
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tiff)))
	buf = append(buf, tiff...)

	got, err := pixmeta.Read(buf, pixmeta.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(got.FileType, qt.Equals, pixmeta.FileTypeMRW)
	c.Assert(got.String(got.Make.Value), qt.Equals, "Fujifilm")
}

func TestReadFOVbScansForEmbeddedExif(t *testing.T) {
	c := qt.New(t)

	tiff := embeddedTIFF(c)

	buf := []byte("FOVb")
	buf = append(buf, make([]byte, 60)...)
	buf = append(buf, []byte("Exif\x00\x00")...)
	buf = append(buf, tiff...)

	got, err := pixmeta.Read(buf, pixmeta.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(got.FileType, qt.Equals, pixmeta.FileTypeFOVb)
	c.Assert(got.String(got.Make.Value), qt.Equals, "Fujifilm")
}

func TestReadUnknownContainer(t *testing.T) {
	c := qt.New(t)

	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(i)
	}

	_, err := pixmeta.Read(buf, pixmeta.Options{})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.(*pixmeta.ParseError).Code, qt.Equals, pixmeta.UnknownFileType)
}

func TestReadShortBuffer(t *testing.T) {
	c := qt.New(t)

	_, err := pixmeta.Read([]byte{0xff, 0xd8}, pixmeta.Options{})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.(*pixmeta.ParseError).Code, qt.Equals, pixmeta.CorruptData)
}

func TestReadFileErrors(t *testing.T) {
	c := qt.New(t)

	_, err := pixmeta.ReadFile(filepath.Join(c.TempDir(), "missing.jpg"), pixmeta.Options{})
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.(*pixmeta.ParseError).Code, qt.Equals, pixmeta.CannotOpenFile)
}

func TestReadFileRoundTrip(t *testing.T) {
	c := qt.New(t)

	d := &pixmeta.ExifData{}
	cd, serr := d.StoreString("Pentax")
	c.Assert(serr, qt.Equals, (*pixmeta.ParseError)(nil))
	d.Make.Set(cd, 0)
	d.Model.Set(mustStore(c, d, "K-1 Mark II"), 0)
	d.Artist.Set(mustStore(c, d, "A Photographer With A Long Name"), 0)
	d.Copyright.Set(mustStore(c, d, "All rights reserved, in perpetuity"), 0)
	jpg := append([]byte{0xff, 0xd8}, pixmeta.WriteJPEGApp1(d)...)
	jpg = append(jpg, 0xff, 0xd9)

	path := filepath.Join(c.TempDir(), "sample.jpg")
	c.Assert(writeTestFile(path, jpg), qt.IsNil)

	got, err := pixmeta.ReadFile(path, pixmeta.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(got.Model.Value), qt.Equals, "K-1 Mark II")
}

func mustStore(c *qt.C, d *pixmeta.ExifData, s string) pixmeta.CharData {
	cd, err := d.StoreString(s)
	c.Assert(err, qt.Equals, (*pixmeta.ParseError)(nil))
	return cd
}

func writeTestFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
