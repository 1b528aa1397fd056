package native

import (
	"encoding/json"
	"errors"
	"runtime"
	"slices"
	"unsafe"

	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/wire"
)

// Lib is an Engine backed by a loaded shared library.
type Lib struct {
	path    string
	loader  Loader
	module  uintptr
	derived []string

	open       func(path *byte) uintptr
	post       func(h uintptr, envelope *byte) uintptr
	put        func(h uintptr, envelope *byte) uintptr
	get        func(h uintptr, id *byte) uintptr
	del        func(h uintptr, id *byte) uintptr
	exists     func(h uintptr, id *byte) int32
	keys       func(h uintptr) uintptr
	all        func(h uintptr) uintptr
	stats      func(h uintptr) uintptr
	clear      func(h uintptr) uintptr
	closeDB    func(h uintptr)
	freeString func(p uintptr)
}

var _ Engine = (*Lib)(nil)

// Path returns the file the library was loaded from.
func (l *Lib) Path() string { return l.path }

// Name implements Engine.
func (l *Lib) Name() string { return l.path }

// Derived lists the optional symbols this library lacks, which are served
// by derived implementations.
func (l *Lib) Derived() []string { return slices.Clone(l.derived) }

// Open implements Engine.
func (l *Lib) Open(path string) (Handle, error) {
	arg := cString(path)
	h := l.open(&arg[0])
	runtime.KeepAlive(arg)
	if h == 0 {
		return 0, kverr.New(kverr.Initialization, "engine returned a null handle").WithContext(path)
	}
	return Handle(h), nil
}

// Post implements Engine.
func (l *Lib) Post(h Handle, envelope []byte) []byte {
	arg := cBytes(envelope)
	p := l.post(uintptr(h), &arg[0])
	runtime.KeepAlive(arg)
	return l.take(p)
}

// Put implements Engine.
func (l *Lib) Put(h Handle, envelope []byte) []byte {
	arg := cBytes(envelope)
	p := l.put(uintptr(h), &arg[0])
	runtime.KeepAlive(arg)
	return l.take(p)
}

// Get implements Engine.
func (l *Lib) Get(h Handle, id string) []byte {
	arg := cString(id)
	p := l.get(uintptr(h), &arg[0])
	runtime.KeepAlive(arg)
	return l.take(p)
}

// Delete implements Engine.
func (l *Lib) Delete(h Handle, id string) []byte {
	arg := cString(id)
	p := l.del(uintptr(h), &arg[0])
	runtime.KeepAlive(arg)
	return l.take(p)
}

// Exists implements Engine. Without the native export it reads the record
// and discards the payload.
func (l *Lib) Exists(h Handle, id string) bool {
	if l.exists == nil {
		raw := l.Get(h, id)
		if raw == nil {
			return false
		}
		_, err := wire.Decode(raw)
		return err == nil
	}
	arg := cString(id)
	r := l.exists(uintptr(h), &arg[0])
	runtime.KeepAlive(arg)
	// negative statuses are engine errors
	return r > 0
}

// Keys implements Engine. Without the native export it enumerates all
// records and extracts their ids.
func (l *Lib) Keys(h Handle) []byte {
	if l.keys == nil {
		return deriveKeys(l.All(h))
	}
	return l.take(l.keys(uintptr(h)))
}

// All implements Engine.
func (l *Lib) All(h Handle) []byte {
	return l.take(l.all(uintptr(h)))
}

// Stats implements Engine.
func (l *Lib) Stats(h Handle) []byte {
	return l.take(l.stats(uintptr(h)))
}

// Clear implements Engine.
func (l *Lib) Clear(h Handle) []byte {
	return l.take(l.clear(uintptr(h)))
}

// Close implements Engine.
func (l *Lib) Close(h Handle) {
	l.closeDB(uintptr(h))
}

// Release implements Engine. It unloads the library; safe to call twice.
func (l *Lib) Release() error {
	if l.module == 0 || l.loader == nil {
		return nil
	}
	module := l.module
	l.module = 0
	if err := l.loader.Close(module); err != nil {
		return kverr.Wrap(kverr.NativeInterop, err, "unload engine library").WithContext(l.path)
	}
	return nil
}

// take copies the engine-owned string at p into Go memory and releases it
// through the engine's allocator. The copy happens before any decoding, so
// a response that later fails to parse has already been freed.
func (l *Lib) take(p uintptr) []byte {
	if p == 0 {
		return nil
	}
	defer l.freeString(p)
	return copyCString(p)
}

// copyCString copies a NUL-terminated string out of foreign memory.
// p is allocated by the engine, outside the Go heap, and stays valid until
// it is passed to lmdbkv_free_string.
func copyCString(p uintptr) []byte {
	ptr := *(*unsafe.Pointer)(unsafe.Pointer(&p))
	n := 0
	for *(*byte)(unsafe.Add(ptr, n)) != 0 {
		n++
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(ptr), n))
	return out
}

// cString returns a Go-owned NUL-terminated copy of s.
func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// cBytes returns a Go-owned NUL-terminated copy of b.
func cBytes(b []byte) []byte {
	out := make([]byte, len(b)+1)
	copy(out, b)
	return out
}

// deriveKeys turns a full enumeration into a key enumeration. Responses it
// cannot interpret are passed through so the key decoder reports them.
func deriveKeys(all []byte) []byte {
	if all == nil {
		return nil
	}
	records, err := wire.DecodeList(all)
	if err != nil {
		return all
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	b, err := json.Marshal(ids)
	if err != nil {
		return all
	}
	return b
}

// errUnsupported is returned by loaders on platforms without dynamic loading.
var errUnsupported = errors.New("dynamic loading is not supported on this platform")
