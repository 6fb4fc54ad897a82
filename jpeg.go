// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"bytes"
	"encoding/binary"
)

const (
	markerSOI  = 0xffd8
	markerEOI  = 0xffd9
	markerSOS  = 0xffda
	markerAPP1 = 0xffe1
)

// parseJPEG walks the segment chain of a JPEG stream. An APP1 segment
// carrying an "Exif\0\0" header is reparsed as an embedded TIFF stream;
// segments after SOS are unreliable and the walk stops there.
func parseJPEG(b []byte, d *ExifData, opts Options, depth int) {
	if depth >= maxDispatchDepth {
		abortParse(CorruptData, "container recursion too deep", "")
	}

	r := newByteReader(b, binary.BigEndian)
	if r.u16() != markerSOI {
		abortParse(CorruptData, "not a JPEG stream", "SOI marker not found")
	}

	for r.pos()+2 <= r.len() {
		marker := r.u16()
		switch {
		case marker == markerSOI:
			// Stray SOI; no length field.
			continue
		case marker == markerEOI, marker == markerSOS:
			return
		case marker>>8 != 0xff:
			abortParse(CorruptData, "invalid JPEG marker", "")
		}

		// The length field includes itself.
		length := int(r.u16())
		if length < 2 {
			abortParse(CorruptData, "invalid JPEG segment length", "")
		}
		payload := r.view(r.pos(), length-2)

		if marker == markerAPP1 && bytes.HasPrefix(payload, magicExifChunk) {
			parseTIFFStream(payload[len(magicExifChunk):], d, opts)
		}

		r.skip(length - 2)
	}
}
