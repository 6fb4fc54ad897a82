// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseDateTime(t *testing.T) {
	c := qt.New(t)

	dt, err := parseDateTime("2025:08:26 10:00:00\x00")
	c.Assert(err, qt.Equals, (*ParseError)(nil))
	c.Assert(dt, qt.Equals, DateTime{Year: 2025, Month: 8, Day: 26, Hour: 10})
	c.Assert(dt.String(), qt.Equals, "2025:08:26 10:00:00")

	_, err = parseDateTime("2025:08:26")
	c.Assert(err, qt.IsNotNil)
	c.Assert(err.Code, qt.Equals, CorruptData)

	_, err = parseDateTime("not a date, not at all")
	c.Assert(err, qt.IsNotNil)
}

func TestDateTimeMonotonic(t *testing.T) {
	c := qt.New(t)

	a := DateTime{Year: 2025, Month: 8, Day: 26, Hour: 10}
	b := DateTime{Year: 2025, Month: 8, Day: 26, Hour: 10, Millis: 1}
	later := DateTime{Year: 2025, Month: 8, Day: 26, Hour: 11}

	c.Assert(a.Monotonic() < b.Monotonic(), qt.IsTrue)
	c.Assert(b.Monotonic() < later.Monotonic(), qt.IsTrue)
	c.Assert(DateTime{}.IsZero(), qt.IsTrue)
	c.Assert(a.IsZero(), qt.IsFalse)
}

func TestSubSecToMillis(t *testing.T) {
	c := qt.New(t)

	// N significant digits scale to milliseconds; more than three
	// round half-up.
	for _, tc := range []struct {
		in   string
		want uint16
	}{
		{"1", 100},
		{"12", 120},
		{"123", 123},
		{"1234", 123},
		{"1235", 124},
		{"9999", 1000},
		{"1\x00\x00", 100},
		{"", 0},
		{"junk", 0},
	} {
		c.Assert(subSecToMillis(tc.in), qt.Equals, tc.want, qt.Commentf("in=%q", tc.in))
	}
}
