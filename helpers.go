// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"math"
	"strings"
	"unicode"
)

// APEXToFNumber converts an APEX aperture value to an f-number.
func APEXToFNumber(apex float64) float64 {
	return math.Pow(2, apex/2)
}

// APEXToSeconds converts an APEX shutter speed value to an exposure
// time in seconds.
func APEXToSeconds(apex float64) float64 {
	return 1 / math.Pow(2, apex)
}

// FNumberToAPEX is the inverse of APEXToFNumber.
func FNumberToAPEX(fnumber float64) float64 {
	return 2 * math.Log2(fnumber)
}

// SecondsToAPEX is the inverse of APEXToSeconds.
func SecondsToAPEX(seconds float64) float64 {
	return -math.Log2(seconds)
}

// printableString strips non-graphic runes and surrounding whitespace.
func printableString(s string) string {
	ss := strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(ss)
}

// trimTrailingNulls removes trailing NUL bytes. String payloads are
// NUL-terminated on the wire and often padded.
func trimTrailingNulls(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
