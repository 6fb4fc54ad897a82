// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

// stringArenaSize is the capacity of the per-record string arena. All
// CharData fields of a record index into it.
const stringArenaSize = 4096

// maxImages is the number of ImageData slots in a record; further
// directories are dropped with a warning.
const maxImages = 5

// vlaCap is the backing capacity of Vla. Schema rows impose tighter
// per-tag bounds (e.g. 4 for as-shot neutral).
const vlaCap = 12

// Tag wraps a decoded value with its set-flag and the wire tag ID that
// contributed it. Assignment is last-write-wins.
type Tag[T any] struct {
	Value      T
	IsSet      bool
	ParsedFrom uint16
}

// Set assigns v and records the contributing tag ID.
func (t *Tag[T]) Set(v T, parsedFrom uint16) {
	t.Value = v
	t.IsSet = true
	t.ParsedFrom = parsedFrom
}

// Clear resets the tag to its unset default.
func (t *Tag[T]) Clear() {
	var zero T
	t.Value = zero
	t.IsSet = false
	t.ParsedFrom = 0
}

// Or returns the value if set, else fallback.
func (t Tag[T]) Or(fallback T) T {
	if t.IsSet {
		return t.Value
	}
	return fallback
}

// Vla is a variable-length array with a fixed backing capacity.
type Vla[T any] struct {
	Values [vlaCap]T
	Num    uint8
}

// Push appends v. It reports false once the backing array is full.
func (v *Vla[T]) Push(val T) bool {
	if int(v.Num) >= len(v.Values) {
		return false
	}
	v.Values[v.Num] = val
	v.Num++
	return true
}

// Slice returns the used portion of the array.
func (v *Vla[T]) Slice() []T {
	return v.Values[:v.Num]
}

// CharData references a string stored in the record's arena. The zero
// value is the empty string.
type CharData struct {
	Offset uint16
	Length uint16
}

// IsZero reports whether the reference is empty.
func (c CharData) IsZero() bool {
	return c.Length == 0
}

// Orientation is the EXIF orientation code.
type Orientation uint16

const (
	OrientationHorizontal               Orientation = 1
	OrientationMirrorHorizontal         Orientation = 2
	OrientationRotate180                Orientation = 3
	OrientationMirrorVertical           Orientation = 4
	OrientationMirrorHorizontalRot270CW Orientation = 5
	OrientationRotate90CW               Orientation = 6
	OrientationMirrorHorizontalRot90CW  Orientation = 7
	OrientationRotate270CW              Orientation = 8
)

func (o Orientation) String() string {
	switch o {
	case OrientationHorizontal:
		return "Horizontal"
	case OrientationMirrorHorizontal:
		return "Mirror Horizontal"
	case OrientationRotate180:
		return "Rotate 180"
	case OrientationMirrorVertical:
		return "Mirror Vertical"
	case OrientationMirrorHorizontalRot270CW:
		return "Mirror Horizontal Rotate 270CW"
	case OrientationRotate90CW:
		return "Rotate 90CW"
	case OrientationMirrorHorizontalRot90CW:
		return "Mirror Horizontal Rotate 90CW"
	case OrientationRotate270CW:
		return "Rotate 270CW"
	}
	return "Unspecified"
}

// SubfileRole classifies the image a directory describes.
type SubfileRole int

const (
	RoleNone SubfileRole = iota
	RoleFullResolution
	RoleReducedResolution
	RoleOther
)

func (s SubfileRole) String() string {
	switch s {
	case RoleNone:
		return "None"
	case RoleFullResolution:
		return "Full Resolution"
	case RoleReducedResolution:
		return "Reduced Resolution"
	case RoleOther:
		return "Other"
	}
	return "None"
}

// ImageData describes one image (primary, thumbnail or sub-IFD) of the
// file.
type ImageData struct {
	Role SubfileRole

	ImageWidth                Tag[uint32]
	ImageHeight               Tag[uint32]
	BitsPerSample             Tag[Vla[uint32]]
	Compression               Tag[uint16]
	PhotometricInterpretation Tag[uint16]
	Orientation               Tag[Orientation]
	SamplesPerPixel           Tag[uint16]
	XResolution               Tag[Rat[uint32]]
	YResolution               Tag[Rat[uint32]]
	ResolutionUnit            Tag[uint16]

	DataOffset Tag[uint32]
	DataLength Tag[uint32]
}

// ExifIFD holds the shot/lens records of the EXIF sub-directory.
type ExifIFD struct {
	ExposureTime    Tag[Rat[uint32]]
	FNumber         Tag[Rat[uint32]]
	FocalLength     Tag[Rat[uint32]]
	ISO             Tag[uint16]
	ExposureProgram Tag[uint16]

	DateTimeOriginal  Tag[DateTime]
	DateTimeDigitized Tag[DateTime]

	ExifVersion Tag[CharData]

	CameraOwnerName  Tag[CharData]
	BodySerialNumber Tag[CharData]

	// LensSpecification is (MinFocalLen, MaxFocalLen, MinFNum@MinFL,
	// MinFNum@MaxFL).
	LensSpecification Tag[[4]Rat[uint32]]
	LensMake          Tag[CharData]
	LensModel         Tag[CharData]
	LensSerialNumber  Tag[CharData]

	ImageTitle              Tag[CharData]
	Photographer            Tag[CharData]
	ImageEditor             Tag[CharData]
	RawDevelopingSoftware   Tag[CharData]
	ImageEditingSoftware    Tag[CharData]
	MetadataEditingSoftware Tag[CharData]
}

// ExifData is the decoded metadata record. It is fully self-contained:
// every CharData field references the record's own arena.
type ExifData struct {
	FileType        FileType
	FileTypeVariant FileTypeVariant

	Images    [maxImages]ImageData
	NumImages int

	Copyright          Tag[CharData]
	Artist             Tag[CharData]
	Make               Tag[CharData]
	Model              Tag[CharData]
	Software           Tag[CharData]
	ProcessingSoftware Tag[CharData]
	DateTime           Tag[DateTime]

	InteropIndex   Tag[CharData]
	InteropVersion Tag[CharData]

	ColorMatrix1       Tag[Vla[Rat[int32]]]
	ColorMatrix2       Tag[Vla[Rat[int32]]]
	ReductionMatrix1   Tag[Vla[Rat[int32]]]
	ReductionMatrix2   Tag[Vla[Rat[int32]]]
	CalibrationMatrix1 Tag[Vla[Rat[int32]]]
	CalibrationMatrix2 Tag[Vla[Rat[int32]]]

	CalibrationIlluminant1 Tag[Illuminant]
	CalibrationIlluminant2 Tag[Illuminant]

	AsShotNeutral Tag[Vla[Rat[uint32]]]
	AsShotWhiteXY Tag[[2]Rat[uint32]]
	AnalogBalance Tag[Vla[Rat[uint32]]]

	ApexAperture     Tag[Rat[uint32]]
	ApexShutterSpeed Tag[Rat[int32]]

	Exif ExifIFD

	Warnings []ParseWarning

	arena     [stringArenaSize]byte
	arenaUsed int
}

// String resolves a CharData reference against the record's arena.
func (d *ExifData) String(c CharData) string {
	if c.IsZero() {
		return ""
	}
	end := int(c.Offset) + int(c.Length)
	if end > d.arenaUsed {
		return ""
	}
	return string(d.arena[c.Offset:end])
}

// StoreString copies s into the arena with a terminating NUL and returns
// a reference to it. The empty string maps to the zero CharData.
func (d *ExifData) StoreString(s string) (CharData, *ParseError) {
	return d.storeBytes([]byte(s))
}

func (d *ExifData) storeBytes(b []byte) (CharData, *ParseError) {
	if len(b) == 0 {
		return CharData{}, nil
	}
	if d.arenaUsed+len(b)+1 > stringArenaSize {
		return CharData{}, newParseError(InternalError, "out of string storage", "")
	}
	off := d.arenaUsed
	copy(d.arena[off:], b)
	d.arena[off+len(b)] = 0
	d.arenaUsed += len(b) + 1
	return CharData{Offset: uint16(off), Length: uint16(len(b))}, nil
}

// ArenaUsed returns the number of arena bytes in use.
func (d *ExifData) ArenaUsed() int {
	return d.arenaUsed
}

// FullResolutionImage returns the first image whose role is
// RoleFullResolution, or nil.
func (d *ExifData) FullResolutionImage() *ImageData {
	for i := 0; i < d.NumImages; i++ {
		if d.Images[i].Role == RoleFullResolution {
			return &d.Images[i]
		}
	}
	return nil
}

func (d *ExifData) warn(warnf func(string, ...any), msg, what string) {
	d.Warnings = append(d.Warnings, ParseWarning{Msg: msg, What: what})
	if warnf != nil {
		if what != "" {
			warnf("%s (%s)", msg, what)
		} else {
			warnf("%s", msg)
		}
	}
}
