// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rat is an unreduced rational number as stored on the wire: a numerator
// and denominator pair. Equality is component-wise; 6/9 != 2/3. A zero
// denominator is representable and only becomes ±Inf/NaN on conversion
// to float64.
type Rat[T int32 | uint32] struct {
	Num T
	Den T
}

// NewRat returns the rational num/den, unreduced.
func NewRat[T int32 | uint32](num, den T) Rat[T] {
	return Rat[T]{Num: num, Den: den}
}

// Float64 returns num/den. Division by zero follows IEEE semantics.
func (r Rat[T]) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

// String returns "num/den", or just "num" if the denominator is 1.
func (r Rat[T]) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r Rat[T]) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rat[T]) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.Contains(s, "/") {
		num, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("failed to parse %q as a rational number: %w", s, err)
		}
		r.Num = T(num)
		r.Den = 1
		return nil
	}
	if _, err := fmt.Sscanf(s, "%d/%d", &r.Num, &r.Den); err != nil {
		return fmt.Errorf("failed to parse %q as a rational number: %w", s, err)
	}
	return nil
}

// RatFromFloat64 approximates v as a rational using continued fraction
// expansion, stopping once the relative error drops below accuracy.
// Accuracy defaults to 1e-4 when zero or negative.
func RatFromFloat64[T int32 | uint32](v float64, accuracy float64) Rat[T] {
	if accuracy <= 0 {
		accuracy = 1e-4
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Rat[T]{}
	}

	neg := v < 0
	if neg {
		v = -v
	}

	// Continued fraction expansion with convergents
	// h(n) = a(n)h(n-1) + h(n-2), k(n) = a(n)k(n-1) + k(n-2).
	var (
		h0, k0 int64 = 0, 1
		h1, k1 int64 = 1, 0
		x            = v
	)
	const limit = math.MaxInt32
	for i := 0; i < 64; i++ {
		a := int64(math.Floor(x))
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if h2 > limit || k2 > limit {
			break
		}
		h0, k0, h1, k1 = h1, k1, h2, k2
		approx := float64(h1) / float64(k1)
		if math.Abs(approx-v) <= accuracy*v || x == float64(a) {
			break
		}
		x = 1 / (x - float64(a))
	}
	if k1 == 0 {
		return Rat[T]{}
	}
	if neg {
		h1 = -h1
	}
	return Rat[T]{Num: T(h1), Den: T(k1)}
}
