// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"fmt"
	"strconv"
)

// Nikon maker notes carry a "Nikon\0" magic, a version word and two
// padding bytes, followed by a self-contained TIFF stream with its own
// byte order.
const nikonHeaderSize = 10

const (
	nikonTagVersion  = 0x0001
	nikonTagISO      = 0x0002
	nikonTagLensType = 0x0083
	nikonTagLensSpec = 0x0084
)

// parseNikonMakerNote decodes the inner Nikon directory. The cursor
// covers the embedded TIFF stream only; offsets inside it are relative
// to its own base.
func parseNikonMakerNote(r *byteReader, d *ExifData, opts Options) {
	order, perr := tiffByteOrder(r.data)
	if perr != nil {
		panic(parseAbort{newParseError(CorruptData, "Nikon maker-note header is not a TIFF stream", "")})
	}
	np := &tiffParser{r: newByteReader(r.data, order), d: d, opts: opts}
	np.r.seek(4)
	offset := np.r.u32()

	var lensType Tag[uint8]

	for hop := 0; offset != 0 && hop < maxIFDChainHops; hop++ {
		np.r.seek(int(offset))
		numEntries := int(np.r.u16())
		if numEntries > maxIFDEntries {
			np.anomaly(CorruptData, "unreasonable maker-note entry count", "")
			return
		}
		for i := 0; i < numEntries; i++ {
			e := readIFDEntry(np.r)
			if sizeOfDataType(e.typ) == 0 {
				np.warn("unknown maker-note entry data type", "")
				continue
			}
			switch e.tag {
			case nikonTagVersion:
				// UNDEFINED x4, informational only.
			case nikonTagISO:
				if e.typ == dtShort && e.count >= 1 {
					if iso := uint16(fetchScalar(e, int(e.count)-1, np.r)); iso != 0 {
						d.Exif.ISO.Set(iso, e.tag)
					}
				}
			case nikonTagLensType:
				if e.typ == dtByte && e.count >= 1 {
					lensType.Set(uint8(fetchScalar(e, 0, np.r)), e.tag)
				}
			case nikonTagLensSpec:
				if e.typ != dtRational || e.count != 4 {
					np.warn("unexpected shape for Nikon lens specification", "")
					continue
				}
				var arr [4]Rat[uint32]
				pr := e.payload(np.r)
				for j := range arr {
					arr[j] = Rat[uint32]{Num: pr.u32(), Den: pr.u32()}
				}
				d.Exif.LensSpecification.Set(arr, e.tag)
			}
		}
		offset = np.r.u32()
	}

	if d.Exif.LensSpecification.IsSet && lensType.IsSet && !d.Exif.LensModel.IsSet {
		name := nikonLensName(lensType.Value, d.Exif.LensSpecification.Value)
		cd, err := d.StoreString(name)
		if err != nil {
			panic(parseAbort{err})
		}
		d.Exif.LensModel.Set(cd, nikonTagLensSpec)
	}
}

// nikonLensName synthesizes a display name such as
// "AF-P 18-55mm f/3.5-5.6G VR" from the lens type bit field and the
// 4-rational lens specification.
func nikonLensName(bits uint8, spec [4]Rat[uint32]) string {
	var prefix string
	switch {
	case bits&0x80 != 0:
		prefix = "AF-P "
	case bits&0x01 == 0:
		prefix = "AF "
	default:
		prefix = "MF "
	}

	var suffix string
	switch {
	case bits&0x40 != 0:
		suffix = "E"
	case bits&0x04 != 0:
		suffix = "G"
	case bits&0x02 != 0:
		suffix = "D"
	}
	if bits&0x08 != 0 {
		suffix += " VR"
	}

	g := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	minFocal := int(spec[0].Float64())
	maxFocal := int(spec[1].Float64())
	if spec[0] == spec[1] {
		return fmt.Sprintf("%s%dmm f/%s%s", prefix, minFocal, g(spec[2].Float64()), suffix)
	}
	return fmt.Sprintf("%s%d-%dmm f/%s-%s%s",
		prefix, minFocal, maxFocal, g(spec[2].Float64()), g(spec[3].Float64()), suffix)
}
