// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"bytes"
	"encoding/binary"
)

const (
	// maxIFDChainHops bounds a linked directory chain.
	maxIFDChainHops = 5
	// subIFDQueueCap bounds the number of queued sub-directory
	// references per file.
	subIFDQueueCap = 16
	// maxIFDEntries rejects absurd entry counts before looping.
	maxIFDEntries = 1000
)

type subIFDKind int

const (
	subExif subIFDKind = iota
	subGeneric
	subMakerNote
	subGps
	subInterop
)

// subIFDRef is a cross-directory reference collected while walking the
// top-level chain and drained afterwards, in enqueue order.
type subIFDRef struct {
	offset uint32
	length uint32
	kind   subIFDKind
}

// tiffParser walks one TIFF stream. It is constructed per stream and
// discarded; embedded streams (maker notes) get their own parser and
// cursor.
type tiffParser struct {
	r    *byteReader
	d    *ExifData
	opts Options
	refs []subIFDRef
}

func (p *tiffParser) warn(msg, what string) {
	p.d.warn(p.opts.Warnf, msg, what)
}

// anomaly is the strict/lenient gate: recoverable anomalies fail the
// parse in strict mode and become warnings otherwise.
func (p *tiffParser) anomaly(code ErrorCode, msg, what string) {
	if p.opts.Strict {
		abortParse(code, msg, what)
	}
	p.warn(msg, what)
}

func (p *tiffParser) enqueue(ref subIFDRef) {
	if len(p.refs) >= subIFDQueueCap {
		p.warn("sub-IFD queue full, reference dropped", "")
		return
	}
	p.refs = append(p.refs, ref)
}

// parseTIFFStream decodes a complete TIFF stream (header, root chain,
// queued sub-directories) into d.
func parseTIFFStream(data []byte, d *ExifData, opts Options) {
	order, err := tiffByteOrder(data)
	if err != nil {
		panic(parseAbort{err})
	}
	p := &tiffParser{
		r:    newByteReader(data, order),
		d:    d,
		opts: opts,
	}
	p.r.seek(4)
	rootOffset := p.r.u32()
	if rootOffset < 8 {
		abortParse(CorruptData, "root IFD offset inside TIFF header", "")
	}

	p.walkChain(rootOffset, ctxRoot, true)
	p.drainQueue()
}

func tiffByteOrder(data []byte) (binary.ByteOrder, *ParseError) {
	if len(data) < 8 {
		return nil, newParseError(CorruptData, "not a TIFF stream", "truncated header")
	}
	switch {
	case data[0] == 'I' && data[1] == 'I':
		return binary.LittleEndian, nil
	case data[0] == 'M' && data[1] == 'M':
		return binary.BigEndian, nil
	}
	return nil, newParseError(CorruptData, "not a TIFF stream", "II or MM header not found")
}

// walkChain follows a linked directory chain for at most
// maxIFDChainHops directories. When images is true each directory
// claims an ImageData slot (the first being the primary image).
func (p *tiffParser) walkChain(offset uint32, ctx uint16, images bool) {
	for hop := 0; ; hop++ {
		if hop == maxIFDChainHops {
			p.warn("directory chain exceeds hop limit, remainder skipped", "")
			return
		}
		var img *ImageData
		if images {
			img = p.claimImage()
			if img == nil {
				p.warn("too many images, directory dropped", "")
				return
			}
		}
		if offset%2 != 0 {
			p.anomaly(CorruptData, "IFD must align to word boundary", "")
		}
		next := p.parseIFD(int(offset), ctx, img)
		if next == 0 {
			return
		}
		if int(next) >= p.r.len() {
			p.anomaly(CorruptData, "next-IFD offset out of bounds", "")
			return
		}
		offset = next
	}
}

func (p *tiffParser) claimImage() *ImageData {
	if p.d.NumImages >= maxImages {
		return nil
	}
	img := &p.d.Images[p.d.NumImages]
	p.d.NumImages++
	return img
}

// parseIFD reads one directory at offset in the given context and
// returns the next-directory offset from its footer.
func (p *tiffParser) parseIFD(offset int, ctx uint16, img *ImageData) uint32 {
	p.r.seek(offset)
	numEntries := int(p.r.u16())
	if numEntries > maxIFDEntries {
		p.anomaly(CorruptData, "unreasonable directory entry count", "")
		return 0
	}

	// Subfile-role tags are post-processed per directory rather than
	// decoded into the record.
	var newSubfile Tag[uint32]
	var oldSubfile Tag[uint16]

	schema := schemaFor(ctx)

	for i := 0; i < numEntries; i++ {
		e := readIFDEntry(p.r)

		if sizeOfDataType(e.typ) == 0 {
			p.warn("unknown IFD entry data type", "")
			continue
		}
		if p.findSubIFD(e) {
			continue
		}

		if ctx == ctxRoot && img != nil {
			switch e.tag {
			case tagSubfileType:
				if matchesDataType(decodeU32, e.typ) || fitsDataType(decodeU32, e.typ) {
					newSubfile.Set(uint32(fetchScalar(e, 0, p.r)), e.tag)
				}
				continue
			case tagOldSubfile:
				if matchesDataType(decodeU16, e.typ) || fitsDataType(decodeU16, e.typ) {
					oldSubfile.Set(uint16(fetchScalar(e, 0, p.r)), e.tag)
				}
				continue
			}
		}

		row, known := schema[e.tag]
		if !known {
			// Not a tag we decode; skipped, not a warning.
			continue
		}
		if err := catchParse(func() { p.decodeEntry(e, row, img) }); err != nil {
			if err.Code == InternalError || p.opts.Strict {
				panic(parseAbort{err})
			}
			p.warn(err.Msg, row.name)
		}
	}

	next := p.r.u32()

	if img != nil {
		if newSubfile.IsSet {
			switch newSubfile.Value {
			case 0:
				img.Role = RoleFullResolution
			case 1:
				img.Role = RoleReducedResolution
			default:
				img.Role = RoleOther
			}
		} else if oldSubfile.IsSet {
			switch oldSubfile.Value {
			case 1:
				img.Role = RoleFullResolution
			case 2:
				img.Role = RoleReducedResolution
			default:
				img.Role = RoleOther
			}
		}
	}

	return next
}

// findSubIFD recognizes structural tags and queues the directories they
// point to. It reports true when the entry was consumed.
func (p *tiffParser) findSubIFD(e ifdEntry) bool {
	switch e.tag {
	case tagExifOffset:
		if e.typ != dtLong || e.count != 1 {
			p.anomaly(CorruptData, "EXIF sub-IFD pointer has wrong shape", "ExifOffset")
			return true
		}
		p.enqueue(subIFDRef{offset: e.offset(p.r), kind: subExif})
		return true
	case tagSubIFDs:
		if e.typ != dtLong {
			p.anomaly(CorruptData, "sub-IFD pointer has wrong data type", "SubIFDs")
			return true
		}
		for i := 0; i < int(e.count); i++ {
			p.enqueue(subIFDRef{offset: uint32(fetchScalar(e, i, p.r)), kind: subGeneric})
		}
		return true
	case tagMakerNote, tagMakerNoteAlt:
		if e.typ != dtUndefined {
			p.anomaly(CorruptData, "maker-note blob has wrong data type", "MakerNote")
			return true
		}
		p.enqueue(subIFDRef{offset: e.offset(p.r), length: e.count, kind: subMakerNote})
		return true
	case tagGpsOffset:
		if e.typ == dtLong && e.count == 1 {
			p.enqueue(subIFDRef{offset: e.offset(p.r), kind: subGps})
		}
		return true
	case tagInteropOffset:
		if e.typ == dtLong && e.count == 1 {
			p.enqueue(subIFDRef{offset: e.offset(p.r), kind: subInterop})
		}
		return true
	}
	return false
}

// drainQueue parses the queued sub-directory references in enqueue
// order. In lenient mode a failing reference becomes a warning and the
// drain continues with the next one.
func (p *tiffParser) drainQueue() {
	for i := 0; i < len(p.refs); i++ {
		ref := p.refs[i]
		err := catchParse(func() {
			switch ref.kind {
			case subExif:
				p.walkChain(ref.offset, ctxExif, false)
			case subGeneric:
				p.walkChain(ref.offset, ctxRoot, true)
			case subMakerNote:
				p.parseMakerNote(ref)
			case subGps, subInterop:
				if p.opts.Warnf != nil {
					p.opts.Warnf("unsupported sub-IFD kind skipped")
				}
			}
		})
		if err != nil {
			if err.Code == InternalError || p.opts.Strict {
				panic(parseAbort{err})
			}
			p.warn(err.Msg, err.What)
		}
	}
}

// parseMakerNote dispatches a maker-note blob to a manufacturer decoder
// by magic prefix.
func (p *tiffParser) parseMakerNote(ref subIFDRef) {
	magicNikon := []byte("Nikon\x00")
	if int(ref.length) > nikonHeaderSize &&
		bytes.HasPrefix(p.r.view(int(ref.offset), len(magicNikon)), magicNikon) {
		inner := p.r.sub(int(ref.offset)+nikonHeaderSize, int(ref.length)-nikonHeaderSize)
		parseNikonMakerNote(inner, p.d, p.opts)
		return
	}
	abortParse(UnknownFileType, "maker-note of unknown type", "")
}
