// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"encoding/binary"
	"fmt"
)

// serializeOrder is the byte order of emitted TIFF streams. Emission is
// always little-endian ("II"); parsers must handle either order anyway.
var serializeOrder binary.ByteOrder = binary.LittleEndian

const (
	offsetStateWaiting = iota + 1
	offsetStateWritten
)

// outstandingOffset is a placeholder written into a directory entry
// whose target position is not known yet (the EXIF sub-IFD pointer).
// Every one staged must transition to written before the serializer
// returns.
type outstandingOffset struct {
	ifdOffset     int // absolute offset of the containing directory
	inEntryOffset int // offset of the value field within the directory
	state         int
}

func (o *outstandingOffset) set(w *writer, target uint32) {
	w.overwriteU32(o.ifdOffset+o.inEntryOffset, target)
	o.state = offsetStateWritten
}

// ifdWriter stages one directory in two side buffers: packed 12-byte
// entries and out-of-line payloads. Offsets written into entries are
// relative to the data buffer until writeIFD patches them.
type ifdWriter struct {
	tags       *writer
	data       *writer
	numTags    int
	numOffsets int

	outstanding []*outstandingOffset
}

func newIFDWriter() *ifdWriter {
	return &ifdWriter{
		tags: newWriter(serializeOrder),
		data: newWriter(serializeOrder),
	}
}

// add stages one entry. payload holds the value in wire order; if it
// fits the 4-byte inline field it is stored there, otherwise it goes to
// the data buffer and the entry records a to-be-patched offset.
// The return value is the entry's byte offset within the tags buffer.
func (f *ifdWriter) add(id uint16, typ dataType, count uint32, payload []byte) int {
	entryOff := f.tags.pos()
	f.tags.u16(id)
	f.tags.u16(uint16(typ))
	f.tags.u32(count)
	if len(payload) <= 4 {
		var inline [4]byte
		copy(inline[:], payload)
		f.tags.bytes(inline[:])
	} else {
		off := f.data.pos()
		f.data.bytes(payload)
		f.tags.u32(uint32(off))
		f.numOffsets++
	}
	f.numTags++
	return entryOff
}

func (f *ifdWriter) addU16(id uint16, v uint16) int {
	enc := newWriter(serializeOrder)
	enc.u16(v)
	return f.add(id, dtShort, 1, enc.buf)
}

func (f *ifdWriter) addU32(id uint16, typ dataType, v uint32) int {
	enc := newWriter(serializeOrder)
	enc.u32(v)
	return f.add(id, typ, 1, enc.buf)
}

func (f *ifdWriter) addURat(id uint16, rats ...Rat[uint32]) int {
	enc := newWriter(serializeOrder)
	for _, r := range rats {
		enc.u32(r.Num)
		enc.u32(r.Den)
	}
	return f.add(id, dtRational, uint32(len(rats)), enc.buf)
}

func (f *ifdWriter) addSRat(id uint16, rats ...Rat[int32]) int {
	enc := newWriter(serializeOrder)
	for _, r := range rats {
		enc.s32(r.Num)
		enc.s32(r.Den)
	}
	return f.add(id, dtSRational, uint32(len(rats)), enc.buf)
}

// addString stages an ASCII entry. The count includes the terminating
// NUL, written explicitly.
func (f *ifdWriter) addString(id uint16, s string) int {
	payload := append([]byte(s), 0)
	return f.add(id, dtASCII, uint32(len(payload)), payload)
}

// addOutstandingPointer stages a LONG entry whose value will be patched
// once the referent's position is known.
func (f *ifdWriter) addOutstandingPointer(id uint16) *outstandingOffset {
	entryOff := f.addU32(id, dtLong, 0xffff)
	oo := &outstandingOffset{
		inEntryOffset: 2 + entryOff + 8, // num-tags header + value field
		state:         offsetStateWaiting,
	}
	f.outstanding = append(f.outstanding, oo)
	return oo
}

// writeIFD emits a staged directory at the writer's current position:
// entry count, entries (with data offsets rebased to their absolute
// positions), a zeroed next-directory slot, then the data buffer.
// It returns the position of the next-directory slot for backpatching.
func writeIFD(w *writer, f *ifdWriter) int {
	ifdOffset := w.pos()
	dataStart := ifdOffset + 2 + f.numTags*ifdEntrySize + 4

	adjusted := 0
	for i := 0; i < f.numTags; i++ {
		entryOff := i * ifdEntrySize
		typ := dataType(f.tags.readU16At(entryOff + 2))
		count := f.tags.readU32At(entryOff + 4)
		if sizeOfDataType(typ)*int(count) > 4 {
			old := f.tags.readU32At(entryOff + 8)
			f.tags.overwriteU32(entryOff+8, old+uint32(dataStart))
			adjusted++
		}
	}
	if adjusted != f.numOffsets {
		panic(fmt.Sprintf("pixmeta: staged %d out-of-line payloads but patched %d", f.numOffsets, adjusted))
	}

	for _, oo := range f.outstanding {
		oo.ifdOffset = ifdOffset
	}

	w.u16(uint16(f.numTags))
	w.bytes(f.tags.buf)
	nextSlot := w.u32(0)
	w.bytes(f.data.buf)
	return nextSlot
}

func (f *ifdWriter) addDateTime(id uint16, subSecID uint16, tag Tag[DateTime]) {
	f.addString(id, tag.Value.String())
	if tag.Value.Millis != 0 {
		f.addString(subSecID, fmt.Sprintf("%03d", tag.Value.Millis))
	}
}

func (f *ifdWriter) addCharData(d *ExifData, id uint16, tag Tag[CharData]) {
	if !tag.IsSet {
		return
	}
	s := d.String(tag.Value)
	if s == "" {
		return
	}
	f.addString(id, s)
}

// WriteTIFF serializes the record as a standalone TIFF byte stream:
// header, root directory, then the EXIF sub-directory, with the
// sub-IFD pointer patched once its position is known. Tags whose
// set-flag is false are omitted.
func WriteTIFF(d *ExifData) []byte {
	w := newWriter(serializeOrder)
	w.u8('I')
	w.u8('I')
	w.u16(0x002a)
	w.u32(8) // root directory follows immediately

	root := newIFDWriter()
	root.addCharData(d, 0x8298, d.Copyright)
	root.addCharData(d, 0x013b, d.Artist)
	root.addCharData(d, 0x010f, d.Make)
	root.addCharData(d, 0x0110, d.Model)
	root.addCharData(d, 0x0131, d.Software)
	root.addCharData(d, 0x000b, d.ProcessingSoftware)
	if d.DateTime.IsSet {
		root.addDateTime(0x0132, tagSubSecTime, d.DateTime)
	}
	if d.ApexAperture.IsSet {
		root.addURat(0x9202, d.ApexAperture.Value)
	}
	if d.ApexShutterSpeed.IsSet {
		root.addSRat(0x9201, d.ApexShutterSpeed.Value)
	}
	exifPointer := root.addOutstandingPointer(tagExifOffset)
	writeIFD(w, root)

	exifPointer.set(w, uint32(w.pos()))

	exif := newIFDWriter()
	exif.addU32(tagSubfileType, dtLong, 1)
	if d.Exif.ExposureTime.IsSet {
		exif.addURat(0x829a, d.Exif.ExposureTime.Value)
	}
	if d.Exif.FNumber.IsSet {
		exif.addURat(0x829d, d.Exif.FNumber.Value)
	}
	if d.Exif.FocalLength.IsSet {
		exif.addURat(0x920a, d.Exif.FocalLength.Value)
	}
	if d.Exif.ISO.IsSet {
		exif.addU16(0x8827, d.Exif.ISO.Value)
	}
	if d.Exif.ExposureProgram.IsSet {
		exif.addU16(0x8822, d.Exif.ExposureProgram.Value)
	}
	if d.Exif.DateTimeOriginal.IsSet {
		exif.addDateTime(0x9003, tagSubSecTimeOriginal, d.Exif.DateTimeOriginal)
	}
	if d.Exif.DateTimeDigitized.IsSet {
		exif.addDateTime(0x9004, tagSubSecTimeDigitized, d.Exif.DateTimeDigitized)
	}
	exif.addCharData(d, 0xa430, d.Exif.CameraOwnerName)
	exif.addCharData(d, 0xa431, d.Exif.BodySerialNumber)
	if d.Exif.LensSpecification.IsSet {
		ls := d.Exif.LensSpecification.Value
		exif.addURat(0xa432, ls[0], ls[1], ls[2], ls[3])
	}
	exif.addCharData(d, 0xa433, d.Exif.LensMake)
	exif.addCharData(d, 0xa434, d.Exif.LensModel)
	exif.addCharData(d, 0xa435, d.Exif.LensSerialNumber)
	exif.addCharData(d, 0xa436, d.Exif.ImageTitle)
	exif.addCharData(d, 0xa437, d.Exif.Photographer)
	exif.addCharData(d, 0xa438, d.Exif.ImageEditor)
	exif.addCharData(d, 0xa43a, d.Exif.RawDevelopingSoftware)
	exif.addCharData(d, 0xa43b, d.Exif.ImageEditingSoftware)
	exif.addCharData(d, 0xa43c, d.Exif.MetadataEditingSoftware)
	writeIFD(w, exif)

	for _, oo := range append(root.outstanding, exif.outstanding...) {
		if oo.state != offsetStateWritten {
			panic("pixmeta: outstanding directory offset never written")
		}
	}

	return w.buf
}

// WriteJPEGApp1 serializes the record as a JPEG APP1 segment: marker,
// big-endian size (covering the size field, the "Exif\0\0" header and
// the TIFF stream), header, TIFF bytes. The caller inserts the segment
// after the SOI marker.
func WriteJPEGApp1(d *ExifData) []byte {
	tiff := WriteTIFF(d)

	out := make([]byte, 0, len(tiff)+10)
	out = append(out, 0xff, 0xe1)
	size := 2 + len(magicExifChunk) + len(tiff)
	out = append(out, byte(size>>8), byte(size))
	out = append(out, magicExifChunk...)
	out = append(out, tiff...)
	return out
}
