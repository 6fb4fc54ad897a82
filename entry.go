// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ifdEntrySize is the on-wire size of one directory entry:
// tag u16, type u16, count u32, value-or-offset 4 bytes.
const ifdEntrySize = 12

// ifdEntry is a raw directory entry. data holds the inline value field
// in stream order; it is either the payload itself (on-wire size <= 4)
// or a u32 absolute offset into the TIFF stream.
type ifdEntry struct {
	tag   uint16
	typ   dataType
	count uint32
	data  [4]byte
}

func readIFDEntry(r *byteReader) ifdEntry {
	var e ifdEntry
	e.tag = r.u16()
	e.typ = dataType(r.u16())
	e.count = r.u32()
	r.read4(&e.data)
	return e
}

// size returns the on-wire payload size in bytes.
func (e ifdEntry) size() int {
	return int(e.count) * sizeOfDataType(e.typ)
}

// offset interprets the inline field as a payload offset.
func (e ifdEntry) offset(r *byteReader) uint32 {
	return r.byteOrder.Uint32(e.data[:])
}

// inline reports whether the payload is stored in the entry itself.
func (e ifdEntry) inline() bool {
	return e.size() <= 4
}

// payload returns a cursor over the entry's value bytes, inline or at
// the pointed-to offset. Out-of-range offsets abort with CorruptData.
func (e ifdEntry) payload(r *byteReader) *byteReader {
	if e.inline() {
		return newByteReader(e.data[:e.size()], r.byteOrder)
	}
	return r.sub(int(e.offset(r)), e.size())
}

// fetchScalar reads element idx of the payload as a widened integer,
// post-swap, sign-extending signed on-wire types.
func fetchScalar(e ifdEntry, idx int, r *byteReader) int64 {
	elem := sizeOfDataType(e.typ)
	p := e.payload(r)
	p.seek(idx * elem)
	switch e.typ {
	case dtByte, dtUndefined:
		return int64(p.u8())
	case dtSByte:
		return int64(p.s8())
	case dtShort:
		return int64(p.u16())
	case dtSShort:
		return int64(p.s16())
	case dtLong:
		return int64(p.u32())
	case dtSLong:
		return int64(p.s32())
	}
	abortParse(CorruptData, "unexpected scalar data type", e.typ.String())
	return 0
}

// decodeEntry decodes one schema-known entry into its destination field,
// per the row's decoded kind. Anomalies are routed through the parser's
// strict/lenient gate; hard bounds errors abort and are handled by the
// caller.
func (p *tiffParser) decodeEntry(e ifdEntry, row *tagSpec, img *ImageData) {
	matches := matchesDataType(row.decode, e.typ)
	fits := fitsDataType(row.decode, e.typ)
	if !matches && !fits {
		p.anomaly(CorruptData, "dtype in tag is incorrect", row.name)
		return
	}
	if !matches {
		p.warn("dtype did not match, but fits", row.name)
	}
	if row.count.count > 0 && !row.count.variable && int(e.count) != row.count.count {
		p.warn("unexpected count for tag", row.name)
	}
	if e.count == 0 {
		// Nothing to decode; the tag stays unset.
		return
	}

	var v any
	switch row.decode {
	case decodeU16:
		v = uint16(fetchScalar(e, 0, p.r))
	case decodeOrientation:
		v = Orientation(fetchScalar(e, 0, p.r))
	case decodeIlluminant:
		v = Illuminant(fetchScalar(e, 0, p.r))
	case decodeU32:
		v = uint32(fetchScalar(e, 0, p.r))
	case decodeU32Vla:
		var vla Vla[uint32]
		n := int(e.count)
		if n > row.count.bound {
			p.warn("too many values for tag, excess discarded", row.name)
			n = row.count.bound
		}
		for i := 0; i < n; i++ {
			vla.Push(uint32(fetchScalar(e, i, p.r)))
		}
		v = vla
	case decodeURat:
		pr := e.payload(p.r)
		v = Rat[uint32]{Num: pr.u32(), Den: pr.u32()}
	case decodeSRat:
		pr := e.payload(p.r)
		v = Rat[int32]{Num: pr.s32(), Den: pr.s32()}
	case decodeURatFixed2:
		var arr [2]Rat[uint32]
		pr := e.payload(p.r)
		for i := 0; i < len(arr) && i < int(e.count); i++ {
			arr[i] = Rat[uint32]{Num: pr.u32(), Den: pr.u32()}
		}
		v = arr
	case decodeURatFixed4:
		var arr [4]Rat[uint32]
		pr := e.payload(p.r)
		for i := 0; i < len(arr) && i < int(e.count); i++ {
			arr[i] = Rat[uint32]{Num: pr.u32(), Den: pr.u32()}
		}
		v = arr
	case decodeURatVla:
		var vla Vla[Rat[uint32]]
		pr := e.payload(p.r)
		n := int(e.count)
		if n > row.count.bound {
			p.warn("too many values for tag, excess discarded", row.name)
			n = row.count.bound
		}
		for i := 0; i < n; i++ {
			vla.Push(Rat[uint32]{Num: pr.u32(), Den: pr.u32()})
		}
		v = vla
	case decodeSRatVla:
		var vla Vla[Rat[int32]]
		pr := e.payload(p.r)
		n := int(e.count)
		if n > row.count.bound {
			p.warn("too many values for tag, excess discarded", row.name)
			n = row.count.bound
		}
		for i := 0; i < n; i++ {
			vla.Push(Rat[int32]{Num: pr.s32(), Den: pr.s32()})
		}
		v = vla
	case decodeString:
		cd, perr := p.storeStringPayload(e)
		if perr != nil {
			panic(parseAbort{perr})
		}
		if cd.IsZero() {
			return
		}
		v = cd
	case decodeDateTime:
		s := string(stringPayload(e, p.r))
		dt, perr := parseDateTime(s)
		if perr != nil {
			p.anomaly(perr.Code, perr.Msg, row.name)
			return
		}
		v = dt
	case decodeSubSec:
		v = subSecToMillis(string(stringPayload(e, p.r)))
	default:
		p.warn("tag decoder not implemented", row.name)
		return
	}

	row.assign(p.d, img, e.tag, v)
}

// stringPayload returns the raw bytes of an ASCII/UNDEFINED payload.
func stringPayload(e ifdEntry, r *byteReader) []byte {
	if e.inline() {
		return e.data[:e.size()]
	}
	return r.view(int(e.offset(r)), e.size())
}

// storeStringPayload copies a text payload into the record's arena.
// Payloads that are not valid UTF-8 are transcoded from Latin-1 first;
// camera firmware routinely writes ISO 8859-1 into ASCII tags.
func (p *tiffParser) storeStringPayload(e ifdEntry) (CharData, *ParseError) {
	b := trimTrailingNulls(stringPayload(e, p.r))
	if len(b) == 0 {
		return CharData{}, nil
	}
	if !utf8.Valid(b) {
		if dec, err := charmap.ISO8859_1.NewDecoder().Bytes(b); err == nil {
			b = dec
		}
	}
	s := printableString(string(b))
	if s == "" {
		return CharData{}, nil
	}
	return p.d.StoreString(s)
}
