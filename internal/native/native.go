// Package native binds the engine's C ABI.
//
// The engine exports plain C functions taking an opaque database handle and
// NUL-terminated UTF-8 strings, and returning engine-allocated strings that
// must be handed back to lmdbkv_free_string. Lib wraps those exports behind
// the Engine interface so the rest of the module never sees a raw pointer:
// every returned string is copied into Go memory and released through the
// engine's allocator before the copy is returned, on every path.
//
// Argument strings are allocated by Go and only borrowed by the engine for
// the duration of one call. They are never passed to lmdbkv_free_string.
package native

// Handle is an opaque reference to one open database inside the engine.
// The zero Handle is the null handle.
type Handle uintptr

// Engine is the set of calls a Store Client makes across the boundary.
// Methods returning []byte return nil when the engine returned a null
// pointer, which callers must treat as distinct from any response variant.
//
// An Engine may serve many handles. Calls on one handle must not overlap.
type Engine interface {
	// Open creates or opens the database at path.
	Open(path string) (Handle, error)

	// Post writes an envelope, expecting the key to be new.
	Post(h Handle, envelope []byte) []byte

	// Put writes an envelope, overwriting any existing value.
	Put(h Handle, envelope []byte) []byte

	Get(h Handle, id string) []byte
	Delete(h Handle, id string) []byte
	Exists(h Handle, id string) bool
	Keys(h Handle) []byte
	All(h Handle) []byte
	Stats(h Handle) []byte
	Clear(h Handle) []byte

	// Close releases the handle. It must be called at most once per handle.
	Close(h Handle)

	// Name identifies the engine for diagnostics (library path or "reference").
	Name() string

	// Release unloads the engine. Handles must be closed first.
	Release() error
}

// Exported symbol names.
const (
	SymOpen       = "lmdbkv_open"
	SymPost       = "lmdbkv_post"
	SymPut        = "lmdbkv_put"
	SymGet        = "lmdbkv_get"
	SymDelete     = "lmdbkv_delete"
	SymExists     = "lmdbkv_exists"
	SymKeys       = "lmdbkv_keys"
	SymAll        = "lmdbkv_all"
	SymStats      = "lmdbkv_stats"
	SymClear      = "lmdbkv_clear"
	SymClose      = "lmdbkv_close"
	SymFreeString = "lmdbkv_free_string"
)

// RequiredSymbols must all resolve for a library to be usable.
var RequiredSymbols = []string{
	SymOpen, SymPost, SymPut, SymGet, SymDelete, SymAll,
	SymStats, SymClear, SymClose, SymFreeString,
}

// OptionalSymbols are absent from older engine builds and are derived from
// required ones when missing.
var OptionalSymbols = []string{SymExists, SymKeys}

// Symbols maps resolved symbol names to their addresses.
type Symbols map[string]uintptr

// Loader opens shared libraries and resolves their exports.
type Loader interface {
	Open(path string) (uintptr, error)
	Lookup(module uintptr, name string) (uintptr, error)
	Close(module uintptr) error
}

// MissingSymbols returns the required symbols absent from syms, in
// declaration order.
func MissingSymbols(syms Symbols) []string {
	var missing []string
	for _, name := range RequiredSymbols {
		if syms[name] == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}
