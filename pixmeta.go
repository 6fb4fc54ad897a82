// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

// Package pixmeta reads and writes photographic metadata embedded in
// camera image files. It recognizes the container format (TIFF and the
// TIFF-based raw variants, JPEG, RAF, MRW, FOVb, CIFF), locates the tag
// directories inside it and decodes them into a typed, self-contained
// ExifData record. The record can be re-emitted as a standalone TIFF
// stream or as a JPEG APP1 segment.
package pixmeta

import (
	"bytes"
	"encoding/binary"
	"os"
)

// minFileSize is the smallest file accepted by ReadFile; anything
// shorter is CorruptData regardless of mode. Read accepts any buffer
// large enough to hold a container header so that hand-built minimal
// streams remain parseable.
const minFileSize = 100

// minBufferSize is the smallest buffer accepted by Read.
const minBufferSize = 8

// maxDispatchDepth bounds recursion into embedded streams
// (e.g. RAF -> JPEG -> TIFF).
const maxDispatchDepth = 4

// FileType is the detected container format.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeTIFF
	FileTypeCIFF
	FileTypeJPEG
	FileTypeRAF
	FileTypeMRW
	FileTypeFOVb
)

func (t FileType) String() string {
	switch t {
	case FileTypeTIFF:
		return "TIFF"
	case FileTypeCIFF:
		return "CIFF"
	case FileTypeJPEG:
		return "JPEG"
	case FileTypeRAF:
		return "RAF"
	case FileTypeMRW:
		return "MRW"
	case FileTypeFOVb:
		return "FOVb"
	}
	return "Unknown"
}

// FileTypeVariant refines FileType for the TIFF-based raw formats.
type FileTypeVariant int

const (
	VariantStandard FileTypeVariant = iota
	VariantORF
	VariantRW2
)

func (v FileTypeVariant) String() string {
	switch v {
	case VariantORF:
		return "ORF"
	case VariantRW2:
		return "RW2"
	}
	return "Standard"
}

// Options configures a Read call.
type Options struct {
	// Strict makes the first recoverable anomaly fail the parse.
	// The default (lenient) converts anomalies to warnings on the
	// returned record and keeps going.
	Strict bool

	// Warnf, if set, is called for each warning as it is recorded.
	Warnf func(string, ...any)
}

// Read decodes the metadata embedded in b. The returned record is
// self-contained and owned by the caller; warnings accumulated in
// lenient mode are attached to it.
func Read(b []byte, opts Options) (*ExifData, error) {
	if len(b) < minBufferSize {
		return nil, newParseError(CorruptData, "buffer too small", "")
	}
	d := &ExifData{}
	if err := catchParse(func() { dispatch(b, d, opts, 0) }); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadFile reads path and decodes it like Read.
func ReadFile(path string, opts Options) (*ExifData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, newParseError(CannotOpenFile, "cannot open file", path)
	}
	if len(b) < minFileSize {
		return nil, newParseError(CorruptData, "file too small", path)
	}
	return Read(b, opts)
}

var (
	magicRAF       = []byte("FUJIFILMCCD-RAW")
	magicMRM       = []byte("\x00MRM")
	magicFOVb      = []byte("FOVb")
	magicCIFF      = []byte("HEAPCCDR")
	magicExifChunk = []byte("Exif\x00\x00")
)

// dispatch sniffs the container magic and routes to the right handler,
// recursing into embedded streams with a fresh cursor per level.
func dispatch(b []byte, d *ExifData, opts Options, depth int) {
	if depth > maxDispatchDepth {
		abortParse(CorruptData, "container recursion too deep", "")
	}
	top := depth == 0

	if ft, variant, ok := sniffTIFF(b); ok {
		if top {
			d.FileType = ft
			d.FileTypeVariant = variant
		}
		parseTIFFStream(b, d, opts)
		return
	}

	switch {
	case len(b) >= 3 && b[0] == 0xff && b[1] == 0xd8 && b[2] == 0xff:
		if top {
			d.FileType = FileTypeJPEG
		}
		parseJPEG(b, d, opts, depth)
	case bytes.HasPrefix(b, magicRAF):
		if top {
			d.FileType = FileTypeRAF
		}
		parseRAF(b, d, opts, depth)
	case bytes.HasPrefix(b, magicMRM):
		if top {
			d.FileType = FileTypeMRW
		}
		parseMRW(b, d, opts)
	case bytes.HasPrefix(b, magicFOVb):
		if top {
			d.FileType = FileTypeFOVb
		}
		scanForEmbeddedExif(b, d, opts)
	case len(b) >= 14 && bytes.Equal(b[6:14], magicCIFF):
		if top {
			d.FileType = FileTypeCIFF
		}
		scanForEmbeddedExif(b, d, opts)
	default:
		if top {
			// Last resort for unrecognized containers.
			scanForEmbeddedExif(b, d, opts)
			return
		}
		abortParse(UnknownFileType, "cannot determine file type", "")
	}
}

// sniffTIFF recognizes plain TIFF plus the ORF and RW2 magic variants.
func sniffTIFF(b []byte) (FileType, FileTypeVariant, bool) {
	order, err := tiffByteOrder(b)
	if err != nil {
		return FileTypeUnknown, VariantStandard, false
	}
	magic := order.Uint16(b[2:4])
	switch magic {
	case 0x002a:
		return FileTypeTIFF, VariantStandard, true
	case 0x4f52, 0x5352:
		return FileTypeTIFF, VariantORF, true
	case 0x0055:
		return FileTypeTIFF, VariantRW2, true
	}
	return FileTypeUnknown, VariantStandard, false
}

// scanForEmbeddedExif is the best-effort fallback: it searches the
// whole buffer for an "Exif\0\0" chunk followed by a TIFF byte-order
// mark and parses from there.
func scanForEmbeddedExif(b []byte, d *ExifData, opts Options) {
	for start := 0; start < len(b); {
		i := bytes.Index(b[start:], magicExifChunk)
		if i < 0 {
			break
		}
		at := start + i + len(magicExifChunk)
		if at+2 <= len(b) && ((b[at] == 'I' && b[at+1] == 'I') || (b[at] == 'M' && b[at+1] == 'M')) {
			parseTIFFStream(b[at:], d, opts)
			return
		}
		start = start + i + 1
	}
	abortParse(UnknownFileType, "cannot determine file type", "no embedded metadata found")
}

// parseRAF handles Fujifilm RAF: a big-endian pointer pair at 0x54
// locates an embedded stream (typically a JPEG with its own APP1).
func parseRAF(b []byte, d *ExifData, opts Options, depth int) {
	r := newByteReader(b, binary.BigEndian)
	r.seek(0x54)
	offset := r.u32()
	length := r.u32()
	region := r.view(int(offset), int(length))
	dispatch(region, d, opts, depth+1)
}

// parseMRW handles Minolta MRW: tagged blocks after an 8-byte header;
// the "TTW" block holds a TIFF stream and parsing it is terminal
// success.
func parseMRW(b []byte, d *ExifData, opts Options) {
	const blockTTW = 0x00545457 // "\0TTW"

	r := newByteReader(b, binary.BigEndian)
	r.seek(4)
	headerLen := r.u32()
	end := 8 + int(headerLen)
	if end > len(b) {
		end = len(b)
	}
	for r.pos()+8 <= end {
		blockTag := r.u32()
		blockSize := r.u32()
		if blockTag == blockTTW {
			parseTIFFStream(r.view(r.pos(), int(blockSize)), d, opts)
			return
		}
		r.skip(int(blockSize))
	}
	abortParse(CorruptData, "MRW: no TTW metadata block found", "")
}
