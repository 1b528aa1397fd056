// Package kverr defines the error taxonomy shared by every lmdbkv component.
//
// Every failure that leaves a component is an *Error carrying a Kind. The kind,
// not the message, decides how a caller recovers: NOT_FOUND is an ordinary
// outcome, VALIDATION means the input must change, NATIVE_INTEROP means the
// engine binary itself is unusable.
package kverr

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind string

const (
	// Initialization indicates the engine could not create a database handle.
	Initialization Kind = "INITIALIZATION"

	// NotFound indicates the key is absent.
	NotFound Kind = "NOT_FOUND"

	// Validation indicates malformed input: bad key, unserializable or
	// oversized payload, unsafe path.
	Validation Kind = "VALIDATION"

	// Engine indicates the engine answered but reported a storage failure,
	// or the client was already closed.
	Engine Kind = "ENGINE"

	// Serialization indicates a response could not be decoded.
	Serialization Kind = "SERIALIZATION"

	// NativeInterop indicates the engine binary could not be found, loaded
	// or validated.
	NativeInterop Kind = "NATIVE_INTEROP"

	// Platform indicates a filesystem resolution or permission failure.
	Platform Kind = "PLATFORM"

	// Unknown is anything not classified above.
	Unknown Kind = "UNKNOWN"
)

// Error is the error type returned by every lmdbkv operation.
type Error struct {
	// Kind identifies the error category. Always set.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Context carries the operand, typically the key or path.
	Context string

	// Cause is the underlying fault, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Context != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Context)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. A target with a
// message only matches errors carrying that exact message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind retaining cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithContext returns a copy of e carrying the given operand.
func (e *Error) WithContext(context string) *Error {
	cp := *e
	cp.Context = context
	return &cp
}

// KindOf returns the kind of err, or Unknown when err is not an *Error.
// Returns the empty Kind for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is an *Error of the given kind.
// Uses errors.As to handle wrapped errors.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return Is(err, NotFound)
}

// Classify converts any error into an *Error, keeping existing ones intact
// and labelling foreign errors Unknown.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(Unknown, err, "unclassified failure")
}
