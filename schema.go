// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

// dataType is the TIFF on-wire element type of an IFD entry.
type dataType uint16

const (
	dtByte      dataType = 1
	dtASCII     dataType = 2
	dtShort     dataType = 3
	dtLong      dataType = 4
	dtRational  dataType = 5
	dtSByte     dataType = 6
	dtUndefined dataType = 7
	dtSShort    dataType = 8
	dtSLong     dataType = 9
	dtSRational dataType = 10
	dtFloat     dataType = 11
	dtDouble    dataType = 12
)

func (t dataType) String() string {
	switch t {
	case dtByte:
		return "BYTE"
	case dtASCII:
		return "ASCII"
	case dtShort:
		return "SHORT"
	case dtLong:
		return "LONG"
	case dtRational:
		return "RATIONAL"
	case dtSByte:
		return "SBYTE"
	case dtUndefined:
		return "UNDEFINED"
	case dtSShort:
		return "SSHORT"
	case dtSLong:
		return "SLONG"
	case dtSRational:
		return "SRATIONAL"
	case dtFloat:
		return "FLOAT"
	case dtDouble:
		return "DOUBLE"
	}
	return "Unknown"
}

// sizeOfDataType returns the per-element byte size, or 0 for unknown
// type codes.
func sizeOfDataType(t dataType) int {
	switch t {
	case dtByte, dtSByte, dtUndefined, dtASCII:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble:
		return 8
	}
	return 0
}

// Directory contexts a tag may appear in.
const (
	ctxRoot uint16 = 1 << iota // IFD0 and the thumbnail chain
	ctxExif
	ctxGps
	ctxInterop
	ctxMakerNote

	ctxAny = 0xffff
)

// decodeKind discriminates how an entry payload is decoded and which Go
// shape it lands in.
type decodeKind int

const (
	decodeU16 decodeKind = iota + 1
	decodeU32
	decodeURat
	decodeSRat
	decodeString
	decodeDateTime
	decodeSubSec
	decodeOrientation
	decodeIlluminant
	decodeURatFixed2
	decodeURatFixed4
	decodeURatVla
	decodeSRatVla
	decodeU32Vla
)

// matchesDataType reports an exact pairing of on-wire type and decoded
// kind.
func matchesDataType(k decodeKind, t dataType) bool {
	switch k {
	case decodeU16, decodeOrientation, decodeIlluminant:
		return t == dtShort
	case decodeU32, decodeU32Vla:
		return t == dtLong
	case decodeURat, decodeURatFixed2, decodeURatFixed4, decodeURatVla:
		return t == dtRational
	case decodeSRat, decodeSRatVla:
		return t == dtSRational
	case decodeString, decodeSubSec:
		return t == dtASCII || t == dtUndefined
	case decodeDateTime:
		return t == dtASCII
	}
	return false
}

// fitsDataType reports whether a narrower on-wire type is still
// representable in the decoded kind. ASCII never fits a non-string.
func fitsDataType(k decodeKind, t dataType) bool {
	if t == dtASCII {
		return false
	}
	switch k {
	case decodeU16, decodeOrientation, decodeIlluminant:
		return t == dtByte || t == dtUndefined || t == dtSByte ||
			t == dtShort || t == dtSShort
	case decodeU32, decodeU32Vla:
		return t == dtByte || t == dtUndefined || t == dtSByte ||
			t == dtShort || t == dtSShort || t == dtSLong || t == dtLong
	}
	return false
}

// countSpec is the cardinality rule of a schema row. count==0 with
// variable means free-var (strings, maker notes); bound limits
// bounded-variable rows.
type countSpec struct {
	count    int
	variable bool
	bound    int
}

var (
	countScalar = countSpec{count: 1}
	countString = countSpec{variable: true}
	countFixed2 = countSpec{count: 2, bound: 2}
	countFixed4 = countSpec{count: 4, bound: 4}
	countVar4   = countSpec{count: 4, variable: true, bound: 4}
	countVar8   = countSpec{count: 8, variable: true, bound: 8}
	countVar12  = countSpec{count: 12, variable: true, bound: 12}
)

// tagSpec is one row of the tag schema: the wire identity of a tag, how
// to decode it, and where the decoded value lands.
type tagSpec struct {
	id     uint16
	ctx    uint16
	wire   dataType
	decode decodeKind
	count  countSpec
	name   string

	// assign stores the decoded value. img is the ImageData slot of the
	// directory being parsed and is nil outside root context.
	assign func(d *ExifData, img *ImageData, id uint16, v any)
}

// Structural tags handled by the directory parser itself, never by the
// entry decoder.
const (
	tagExifOffset    = 0x8769
	tagGpsOffset     = 0x8825
	tagInteropOffset = 0xa005
	tagSubIFDs       = 0x014a
	tagMakerNote     = 0x927c
	tagMakerNoteAlt  = 0x002e
	tagSubfileType   = 0x00fe
	tagOldSubfile    = 0x00ff

	tagSubSecTime          = 0x9290
	tagSubSecTimeOriginal  = 0x9291
	tagSubSecTimeDigitized = 0x9292
)

func charAssign(sel func(d *ExifData) *Tag[CharData]) func(*ExifData, *ImageData, uint16, any) {
	return func(d *ExifData, _ *ImageData, id uint16, v any) {
		sel(d).Set(v.(CharData), id)
	}
}

func sratVlaAssign(sel func(d *ExifData) *Tag[Vla[Rat[int32]]]) func(*ExifData, *ImageData, uint16, any) {
	return func(d *ExifData, _ *ImageData, id uint16, v any) {
		sel(d).Set(v.(Vla[Rat[int32]]), id)
	}
}

// mergeMillis folds a sub-second value into a DateTime tag without
// flipping its set-flag; the datetime entry itself may decode later.
func mergeMillis(sel func(d *ExifData) *Tag[DateTime]) func(*ExifData, *ImageData, uint16, any) {
	return func(d *ExifData, _ *ImageData, _ uint16, v any) {
		sel(d).Value.Millis = v.(uint16)
	}
}

// mergeDateTime assigns the six clock fields, preserving an already
// merged sub-second value.
func mergeDateTime(sel func(d *ExifData) *Tag[DateTime]) func(*ExifData, *ImageData, uint16, any) {
	return func(d *ExifData, _ *ImageData, id uint16, v any) {
		dt := v.(DateTime)
		dt.Millis = sel(d).Value.Millis
		dt.TZOffset = sel(d).Value.TZOffset
		sel(d).Set(dt, id)
	}
}

// tagTable is the full schema. Context masks follow the TIFF/EXIF
// layout; a handful of tags legitimately appear in more than one
// directory (focal length, the APEX pair) and are last-write-wins.
var tagTable = []tagSpec{
	{0x0001, ctxRoot, dtASCII, decodeString, countString, "InteropIndex",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.InteropIndex })},
	{0x0002, ctxRoot, dtUndefined, decodeString, countString, "InteropVersion",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.InteropVersion })},
	{0x000b, ctxRoot, dtASCII, decodeString, countString, "ProcessingSoftware",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.ProcessingSoftware })},
	{0x0100, ctxRoot, dtLong, decodeU32, countScalar, "ImageWidth",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.ImageWidth.Set(v.(uint32), id) }},
	{0x0101, ctxRoot, dtLong, decodeU32, countScalar, "ImageHeight",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.ImageHeight.Set(v.(uint32), id) }},
	{0x0102, ctxRoot, dtLong, decodeU32Vla, countVar8, "BitsPerSample",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.BitsPerSample.Set(v.(Vla[uint32]), id) }},
	{0x0103, ctxRoot, dtShort, decodeU16, countScalar, "Compression",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.Compression.Set(v.(uint16), id) }},
	{0x0106, ctxRoot, dtShort, decodeU16, countScalar, "PhotometricInterpretation",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.PhotometricInterpretation.Set(v.(uint16), id) }},
	{0x010f, ctxRoot, dtASCII, decodeString, countString, "Make",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Make })},
	{0x0110, ctxRoot, dtASCII, decodeString, countString, "Model",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Model })},
	{0x0112, ctxRoot, dtShort, decodeOrientation, countScalar, "Orientation",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.Orientation.Set(v.(Orientation), id) }},
	{0x0115, ctxRoot, dtShort, decodeU16, countScalar, "SamplesPerPixel",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.SamplesPerPixel.Set(v.(uint16), id) }},
	{0x011a, ctxRoot, dtRational, decodeURat, countScalar, "XResolution",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.XResolution.Set(v.(Rat[uint32]), id) }},
	{0x011b, ctxRoot, dtRational, decodeURat, countScalar, "YResolution",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.YResolution.Set(v.(Rat[uint32]), id) }},
	{0x0128, ctxRoot, dtShort, decodeU16, countScalar, "ResolutionUnit",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.ResolutionUnit.Set(v.(uint16), id) }},
	{0x0131, ctxRoot, dtASCII, decodeString, countString, "Software",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Software })},
	{0x0132, ctxRoot, dtASCII, decodeDateTime, countString, "DateTime",
		mergeDateTime(func(d *ExifData) *Tag[DateTime] { return &d.DateTime })},
	{0x013b, ctxRoot, dtASCII, decodeString, countString, "Artist",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Artist })},
	{0x0201, ctxRoot, dtLong, decodeU32, countScalar, "JPEGInterchangeFormat",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.DataOffset.Set(v.(uint32), id) }},
	{0x0202, ctxRoot, dtLong, decodeU32, countScalar, "JPEGInterchangeFormatLength",
		func(d *ExifData, img *ImageData, id uint16, v any) { img.DataLength.Set(v.(uint32), id) }},
	{0x8298, ctxRoot, dtASCII, decodeString, countString, "Copyright",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Copyright })},

	{0xc621, ctxRoot, dtSRational, decodeSRatVla, countVar12, "ColorMatrix1",
		sratVlaAssign(func(d *ExifData) *Tag[Vla[Rat[int32]]] { return &d.ColorMatrix1 })},
	{0xc622, ctxRoot, dtSRational, decodeSRatVla, countVar12, "ColorMatrix2",
		sratVlaAssign(func(d *ExifData) *Tag[Vla[Rat[int32]]] { return &d.ColorMatrix2 })},
	{0xc623, ctxRoot, dtSRational, decodeSRatVla, countVar12, "CameraCalibration1",
		sratVlaAssign(func(d *ExifData) *Tag[Vla[Rat[int32]]] { return &d.CalibrationMatrix1 })},
	{0xc624, ctxRoot, dtSRational, decodeSRatVla, countVar12, "CameraCalibration2",
		sratVlaAssign(func(d *ExifData) *Tag[Vla[Rat[int32]]] { return &d.CalibrationMatrix2 })},
	{0xc625, ctxRoot, dtSRational, decodeSRatVla, countVar12, "ReductionMatrix1",
		sratVlaAssign(func(d *ExifData) *Tag[Vla[Rat[int32]]] { return &d.ReductionMatrix1 })},
	{0xc626, ctxRoot, dtSRational, decodeSRatVla, countVar12, "ReductionMatrix2",
		sratVlaAssign(func(d *ExifData) *Tag[Vla[Rat[int32]]] { return &d.ReductionMatrix2 })},
	{0xc627, ctxRoot, dtRational, decodeURatVla, countVar4, "AnalogBalance",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.AnalogBalance.Set(v.(Vla[Rat[uint32]]), id) }},
	{0xc628, ctxRoot, dtRational, decodeURatVla, countVar4, "AsShotNeutral",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.AsShotNeutral.Set(v.(Vla[Rat[uint32]]), id) }},
	{0xc629, ctxRoot, dtRational, decodeURatFixed2, countFixed2, "AsShotWhiteXY",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.AsShotWhiteXY.Set(v.([2]Rat[uint32]), id) }},
	{0xc65a, ctxRoot, dtShort, decodeIlluminant, countScalar, "CalibrationIlluminant1",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.CalibrationIlluminant1.Set(v.(Illuminant), id) }},
	{0xc65b, ctxRoot, dtShort, decodeIlluminant, countScalar, "CalibrationIlluminant2",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.CalibrationIlluminant2.Set(v.(Illuminant), id) }},

	// The APEX pair and focal length legitimately show up in either the
	// root or the EXIF directory, depending on the writer.
	{0x9201, ctxRoot | ctxExif, dtSRational, decodeSRat, countScalar, "ShutterSpeedValue",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.ApexShutterSpeed.Set(v.(Rat[int32]), id) }},
	{0x9202, ctxRoot | ctxExif, dtRational, decodeURat, countScalar, "ApertureValue",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.ApexAperture.Set(v.(Rat[uint32]), id) }},
	{0x920a, ctxRoot | ctxExif, dtRational, decodeURat, countScalar, "FocalLength",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.Exif.FocalLength.Set(v.(Rat[uint32]), id) }},
	{0x9003, ctxRoot | ctxExif, dtASCII, decodeDateTime, countString, "DateTimeOriginal",
		mergeDateTime(func(d *ExifData) *Tag[DateTime] { return &d.Exif.DateTimeOriginal })},

	{0x829a, ctxExif, dtRational, decodeURat, countScalar, "ExposureTime",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.Exif.ExposureTime.Set(v.(Rat[uint32]), id) }},
	{0x829d, ctxExif, dtRational, decodeURat, countScalar, "FNumber",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.Exif.FNumber.Set(v.(Rat[uint32]), id) }},
	{0x8822, ctxExif, dtShort, decodeU16, countScalar, "ExposureProgram",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.Exif.ExposureProgram.Set(v.(uint16), id) }},
	{0x8827, ctxExif, dtShort, decodeU16, countScalar, "ISO",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.Exif.ISO.Set(v.(uint16), id) }},
	{0x9000, ctxExif, dtUndefined, decodeString, countString, "ExifVersion",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.ExifVersion })},
	{0x9004, ctxExif, dtASCII, decodeDateTime, countString, "DateTimeDigitized",
		mergeDateTime(func(d *ExifData) *Tag[DateTime] { return &d.Exif.DateTimeDigitized })},

	// Sub-second companions follow their date-time tag, which may sit
	// in either directory.
	{tagSubSecTime, ctxRoot | ctxExif, dtASCII, decodeSubSec, countString, "SubSecTime",
		mergeMillis(func(d *ExifData) *Tag[DateTime] { return &d.DateTime })},
	{tagSubSecTimeOriginal, ctxRoot | ctxExif, dtASCII, decodeSubSec, countString, "SubSecTimeOriginal",
		mergeMillis(func(d *ExifData) *Tag[DateTime] { return &d.Exif.DateTimeOriginal })},
	{tagSubSecTimeDigitized, ctxRoot | ctxExif, dtASCII, decodeSubSec, countString, "SubSecTimeDigitized",
		mergeMillis(func(d *ExifData) *Tag[DateTime] { return &d.Exif.DateTimeDigitized })},

	{0xa430, ctxExif, dtASCII, decodeString, countString, "CameraOwnerName",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.CameraOwnerName })},
	{0xa431, ctxExif, dtASCII, decodeString, countString, "BodySerialNumber",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.BodySerialNumber })},
	{0xa432, ctxExif, dtRational, decodeURatFixed4, countFixed4, "LensSpecification",
		func(d *ExifData, _ *ImageData, id uint16, v any) { d.Exif.LensSpecification.Set(v.([4]Rat[uint32]), id) }},
	{0xa433, ctxExif, dtASCII, decodeString, countString, "LensMake",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.LensMake })},
	{0xa434, ctxExif, dtASCII, decodeString, countString, "LensModel",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.LensModel })},
	{0xa435, ctxExif, dtASCII, decodeString, countString, "LensSerialNumber",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.LensSerialNumber })},

	{0xa436, ctxExif, dtASCII, decodeString, countString, "ImageTitle",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.ImageTitle })},
	{0xa437, ctxExif, dtASCII, decodeString, countString, "Photographer",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.Photographer })},
	{0xa438, ctxExif, dtASCII, decodeString, countString, "ImageEditor",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.ImageEditor })},
	{0xa43a, ctxExif, dtASCII, decodeString, countString, "RAWDevelopingSoftware",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.RawDevelopingSoftware })},
	{0xa43b, ctxExif, dtASCII, decodeString, countString, "ImageEditingSoftware",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.ImageEditingSoftware })},
	{0xa43c, ctxExif, dtASCII, decodeString, countString, "MetadataEditingSoftware",
		charAssign(func(d *ExifData) *Tag[CharData] { return &d.Exif.MetadataEditingSoftware })},
}

// Per-context lookup maps, built once at init. Lookup is O(1) on
// (tag, context).
var (
	rootSchema = map[uint16]*tagSpec{}
	exifSchema = map[uint16]*tagSpec{}
)

func init() {
	for i := range tagTable {
		row := &tagTable[i]
		if row.ctx&ctxRoot != 0 {
			rootSchema[row.id] = row
		}
		if row.ctx&ctxExif != 0 {
			exifSchema[row.id] = row
		}
	}
}

func schemaFor(ctx uint16) map[uint16]*tagSpec {
	switch ctx {
	case ctxExif:
		return exifSchema
	default:
		return rootSchema
	}
}
