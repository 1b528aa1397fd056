package native

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/wire"
)

// foreignHeap stands in for the engine's allocator. Strings it hands out
// stay reachable until freed, and freeing an unknown pointer fails the test.
type foreignHeap struct {
	t     *testing.T
	live  map[uintptr][]byte
	freed int
}

func newForeignHeap(t *testing.T) *foreignHeap {
	h := &foreignHeap{t: t, live: map[uintptr][]byte{}}
	t.Cleanup(func() {
		assert.Empty(t, h.live, "engine strings leaked")
	})
	return h
}

func (h *foreignHeap) alloc(s string) uintptr {
	b := append([]byte(s), 0)
	p := uintptr(unsafe.Pointer(&b[0]))
	h.live[p] = b
	return p
}

func (h *foreignHeap) free(p uintptr) {
	if _, ok := h.live[p]; !ok {
		h.t.Errorf("free of unknown or already freed pointer %#x", p)
		return
	}
	delete(h.live, p)
	h.freed++
}

func goString(p *byte) string {
	return string(copyCString(uintptr(unsafe.Pointer(p))))
}

// fakeLib returns a Lib whose exports are Go functions answering from a
// fixed record set.
func fakeLib(h *foreignHeap, records map[string]string) *Lib {
	return &Lib{
		path: "/fake/liblmdbkv.so",
		open: func(*byte) uintptr { return 1 },
		get: func(_ uintptr, id *byte) uintptr {
			key := goString(id)
			data, ok := records[key]
			if !ok {
				return h.alloc(string(wire.NotFoundResponse()))
			}
			env, err := wire.EncodeEnvelope(key, []byte(data))
			if err != nil {
				panic(err)
			}
			return h.alloc(string(wire.OkResponse(env)))
		},
		all: func(uintptr) uintptr {
			out := "["
			first := true
			for id, data := range records {
				if !first {
					out += ","
				}
				first = false
				env, _ := wire.EncodeEnvelope(id, []byte(data))
				out += string(env)
			}
			return h.alloc(out + "]")
		},
		closeDB:    func(uintptr) {},
		freeString: h.free,
	}
}

func TestLib_TakeCopiesThenFrees(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, map[string]string{"k": `{"x":1}`})

	raw := l.Get(1, "k")
	require.NotNil(t, raw)
	assert.Equal(t, 1, h.freed)

	data, err := wire.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, wire.Data{"x": float64(1)}, data)
}

func TestLib_MalformedResponseStillFreed(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, nil)
	l.get = func(uintptr, *byte) uintptr { return h.alloc("{not json") }

	raw := l.Get(1, "k")
	assert.Equal(t, 1, h.freed)

	_, err := wire.Decode(raw)
	assert.Equal(t, kverr.Serialization, kverr.KindOf(err))
}

func TestLib_NullResponseIsNil(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, nil)
	l.get = func(uintptr, *byte) uintptr { return 0 }

	assert.Nil(t, l.Get(1, "k"))
	assert.Zero(t, h.freed, "null must not be passed to the engine's free")
}

func TestLib_ArgumentsAreNulTerminatedCopies(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, nil)
	var seen string
	l.post = func(_ uintptr, env *byte) uintptr {
		seen = goString(env)
		return h.alloc(string(wire.OkResponse([]byte("true"))))
	}

	envelope := []byte(`{"id":"k","data":{}}`)
	raw := l.Post(1, envelope)
	require.NotNil(t, raw)
	assert.Equal(t, string(envelope), seen)
}

func TestLib_OpenNullHandle(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, nil)
	l.open = func(*byte) uintptr { return 0 }

	_, err := l.Open("/data/a.lmdb")
	require.Error(t, err)
	assert.Equal(t, kverr.Initialization, kverr.KindOf(err))
}

func TestLib_DerivedExists(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, map[string]string{"present": `{"a":true}`})

	assert.True(t, l.Exists(1, "present"))
	assert.False(t, l.Exists(1, "absent"))
	assert.Equal(t, 2, h.freed)
}

func TestLib_NativeExistsPreferred(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, nil)
	var asked string
	l.exists = func(_ uintptr, id *byte) int32 {
		asked = goString(id)
		return 1
	}

	assert.True(t, l.Exists(1, "k"))
	assert.Equal(t, "k", asked)
	assert.Zero(t, h.freed)
}

func TestLib_NativeExistsStatus(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, nil)

	for status, want := range map[int32]bool{1: true, 0: false, -1: false, -22: false} {
		l.exists = func(uintptr, *byte) int32 { return status }
		assert.Equal(t, want, l.Exists(1, "k"), "status %d", status)
	}
}

func TestLib_DerivedKeys(t *testing.T) {
	h := newForeignHeap(t)
	l := fakeLib(h, map[string]string{"b": `{}`, "a": `{"n":1}`})

	keys, err := wire.DecodeKeys(l.Keys(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, 1, h.freed)
}

func TestDeriveKeys_PassesThroughErrors(t *testing.T) {
	bad := wire.BadRequestResponse("database closed")
	_, err := wire.DecodeKeys(deriveKeys(bad))
	assert.Equal(t, kverr.Validation, kverr.KindOf(err))

	assert.Nil(t, deriveKeys(nil))
}

type countingLoader struct {
	closed int
	err    error
}

func (c *countingLoader) Open(string) (uintptr, error)            { return 1, nil }
func (c *countingLoader) Lookup(uintptr, string) (uintptr, error) { return 1, nil }
func (c *countingLoader) Close(uintptr) error {
	c.closed++
	return c.err
}

func TestLib_ReleaseOnce(t *testing.T) {
	loader := &countingLoader{}
	l := &Lib{path: "x", loader: loader, module: 42}

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
	assert.Equal(t, 1, loader.closed)
}

func TestLib_ReleaseError(t *testing.T) {
	loader := &countingLoader{err: errors.New("busy")}
	l := &Lib{path: "x", loader: loader, module: 42}

	err := l.Release()
	require.Error(t, err)
	assert.Equal(t, kverr.NativeInterop, kverr.KindOf(err))
}

func TestMissingSymbols(t *testing.T) {
	syms := Symbols{}
	for _, name := range RequiredSymbols {
		syms[name] = 1
	}
	assert.Empty(t, MissingSymbols(syms))

	delete(syms, SymFreeString)
	delete(syms, SymPost)
	assert.Equal(t, []string{SymPost, SymFreeString}, MissingSymbols(syms))
}

func TestBind_RejectsMissingRequired(t *testing.T) {
	_, err := Bind("/lib/liblmdbkv.so", &countingLoader{}, 1, Symbols{SymOpen: 1})
	require.Error(t, err)
	assert.Equal(t, kverr.NativeInterop, kverr.KindOf(err))
	assert.Contains(t, err.Error(), SymFreeString)
}
