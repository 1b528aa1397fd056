package lmdbkv

import "github.com/roach88/lmdbkv/internal/kverr"

// Error is the error type returned by every operation.
type Error = kverr.Error

// Kind categorizes an Error.
type Kind = kverr.Kind

// Error kinds.
const (
	KindInitialization = kverr.Initialization
	KindNotFound       = kverr.NotFound
	KindValidation     = kverr.Validation
	KindEngine         = kverr.Engine
	KindSerialization  = kverr.Serialization
	KindNativeInterop  = kverr.NativeInterop
	KindPlatform       = kverr.Platform
	KindUnknown        = kverr.Unknown
)

// Sentinels for errors.Is.
var (
	// ErrNotFound matches any NOT_FOUND error.
	ErrNotFound = &Error{Kind: KindNotFound}

	// ErrClosed matches operations attempted on a closed client.
	ErrClosed = &Error{Kind: KindEngine, Message: "client is closed"}
)

// KindOf returns the kind of err, or KindUnknown for errors not produced by
// this package. Returns "" for nil.
func KindOf(err error) Kind {
	return kverr.KindOf(err)
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return kverr.IsNotFound(err)
}
