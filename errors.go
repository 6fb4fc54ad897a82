// Copyright 2025 The pixmeta authors
// SPDX-License-Identifier: MIT

package pixmeta

import "fmt"

// ErrorCode classifies a ParseError.
type ErrorCode int

const (
	// CannotOpenFile means the input file could not be opened or read.
	CannotOpenFile ErrorCode = iota + 1
	// UnknownFileType means no known container magic matched.
	UnknownFileType
	// CorruptData means an offset, length or structure was out of bounds
	// or malformed.
	CorruptData
	// TagNotFound means a requested tag is not present in the record.
	TagNotFound
	// InternalError means an internal invariant was violated, e.g. the
	// string arena overflowed.
	InternalError
)

func (c ErrorCode) String() string {
	switch c {
	case CannotOpenFile:
		return "cannot open file"
	case UnknownFileType:
		return "unknown file type"
	case CorruptData:
		return "corrupt data"
	case TagNotFound:
		return "tag not found"
	case InternalError:
		return "internal error"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ParseError is the error type returned by Read and ReadFile.
// What, when set, names the tag or structure the error relates to.
type ParseError struct {
	Code ErrorCode
	Msg  string
	What string
}

func (e *ParseError) Error() string {
	if e.What != "" {
		return fmt.Sprintf("pixmeta: %s: %s (%s)", e.Code, e.Msg, e.What)
	}
	return fmt.Sprintf("pixmeta: %s: %s", e.Code, e.Msg)
}

func newParseError(code ErrorCode, msg, what string) *ParseError {
	return &ParseError{Code: code, Msg: msg, What: what}
}

// ParseWarning is a recoverable anomaly encountered while parsing. In
// lenient mode every recoverable anomaly becomes one; in strict mode only
// the advisory ones do (e.g. a type that fits but does not match, or an
// unexpected count). Warnings are ordered by encounter time.
type ParseWarning struct {
	Msg  string
	What string
}

func (w ParseWarning) String() string {
	if w.What != "" {
		return w.Msg + " (" + w.What + ")"
	}
	return w.Msg
}
