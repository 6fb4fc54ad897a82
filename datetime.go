// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"fmt"
	"strconv"
	"strings"
)

// dateTimeLayout is the EXIF on-wire date format: 19 characters plus a
// terminating NUL.
const dateTimeLayout = "2006:01:02 15:04:05"

// DateTime is a camera timestamp. TZOffset is in hours east of UTC;
// Millis carries the merged sub-second value when present.
type DateTime struct {
	Year   int32
	Month  int8
	Day    int8
	Hour   int8
	Minute int8
	Second int8

	Millis   uint16
	TZOffset int32
}

// Monotonic projects the timestamp onto a single ordered int64.
// It is not a Unix time; it is only meaningful for comparisons.
func (dt DateTime) Monotonic() int64 {
	m := (int64(dt.Year)*12+int64(dt.Month))*31 + int64(dt.Day)
	m = ((m*24+int64(dt.Hour)-int64(dt.TZOffset))*60+int64(dt.Minute))*60 + int64(dt.Second)
	return m*1000 + int64(dt.Millis)
}

// IsZero reports whether all fields are unset.
func (dt DateTime) IsZero() bool {
	return dt == DateTime{}
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%04d:%02d:%02d %02d:%02d:%02d",
		dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)
}

// parseDateTime decodes "YYYY:MM:DD hh:mm:ss". Millis and TZOffset are
// left at zero; sub-second tags merge into Millis separately.
func parseDateTime(s string) (DateTime, *ParseError) {
	s = strings.TrimRight(s, "\x00 ")
	if len(s) < len(dateTimeLayout) {
		return DateTime{}, newParseError(CorruptData, "date-time value not long enough", s)
	}
	var y, mo, d, h, mi, sec int
	if _, err := fmt.Sscanf(s, "%4d:%2d:%2d %2d:%2d:%2d", &y, &mo, &d, &h, &mi, &sec); err != nil {
		return DateTime{}, newParseError(CorruptData, "malformed date-time value", s)
	}
	return DateTime{
		Year:   int32(y),
		Month:  int8(mo),
		Day:    int8(d),
		Hour:   int8(h),
		Minute: int8(mi),
		Second: int8(sec),
	}, nil
}

// subSecToMillis normalizes a sub-second ASCII field to milliseconds.
// With N significant digits: N<3 scales up by 10^(3-N); N>3 divides by
// 10^(N-3) with round-half-up. "1" -> 100, "12" -> 120, "1234" -> 123.
func subSecToMillis(s string) uint16 {
	s = strings.TrimRight(s, "\x00 ")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	val, err := strconv.Atoi(s)
	if err != nil || val < 0 {
		return 0
	}
	n := len(s)
	for ; n < 3; n++ {
		val *= 10
	}
	if n > 3 {
		div := 1
		for i := 3; i < n; i++ {
			div *= 10
		}
		val = (val + div/2) / div
	}
	return uint16(val)
}
