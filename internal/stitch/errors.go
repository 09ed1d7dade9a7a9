package stitch

import (
	"errors"
	"fmt"
)

// Kind classifies a stitching failure.
type Kind int

const (
	// KindUnknown covers panics and anything not otherwise classified.
	KindUnknown Kind = iota
	// KindConfiguration means no valid configuration was available.
	KindConfiguration
	// KindInput means the caller passed unusable arguments.
	KindInput
	// KindEngine means the engine or the conversion of its output failed.
	KindEngine
	// KindOutputWrite means the optional output file could not be written.
	// It is only ever reported as a warning on a successful result.
	KindOutputWrite
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInput:
		return "input"
	case KindEngine:
		return "engine"
	case KindOutputWrite:
		return "output write"
	default:
		return "unknown"
	}
}

// Error is a classified stitching failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
