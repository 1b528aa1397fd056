package testutil

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/native"
	"github.com/roach88/lmdbkv/internal/wire"
)

// Operation names recorded by MemEngine.
const (
	OpOpen    = "open"
	OpPost    = "post"
	OpPut     = "put"
	OpGet     = "get"
	OpDelete  = "delete"
	OpExists  = "exists"
	OpKeys    = "keys"
	OpAll     = "all"
	OpStats   = "stats"
	OpClear   = "clear"
	OpClose   = "close"
	OpRelease = "release"
)

// MemEngine is an in-memory native.Engine for tests. It follows the same
// protocol as the reference engine, counts every call, and can be told to
// answer any operation with a canned response (including null).
//
// Databases are keyed by path, so reopening a path sees earlier writes.
type MemEngine struct {
	Calls Calls

	mu        sync.Mutex
	next      native.Handle
	handles   map[native.Handle]string
	dbs       map[string]map[string][]byte
	overrides map[string][]byte
	closed    map[native.Handle]int
	openErr   error
}

var _ native.Engine = (*MemEngine)(nil)

// NewMemEngine returns an empty engine.
func NewMemEngine() *MemEngine {
	return &MemEngine{
		handles:   make(map[native.Handle]string),
		dbs:       make(map[string]map[string][]byte),
		overrides: make(map[string][]byte),
		closed:    make(map[native.Handle]int),
	}
}

// Respond makes op answer with raw until cleared. A nil raw simulates a
// null pointer from the engine.
func (m *MemEngine) Respond(op string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[op] = raw
}

// ClearResponses removes every canned response.
func (m *MemEngine) ClearResponses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = make(map[string][]byte)
}

// FailOpen makes Open fail with err; nil restores normal behavior.
func (m *MemEngine) FailOpen(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// CloseCount returns how many times h was closed.
func (m *MemEngine) CloseCount(h native.Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[h]
}

// Len returns the number of records stored at path.
func (m *MemEngine) Len(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dbs[path])
}

// Envelope returns the raw envelope last written for id at path.
func (m *MemEngine) Envelope(path, id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.dbs[path][id])
}

func (m *MemEngine) Name() string { return "memory" }

func (m *MemEngine) Open(path string) (native.Handle, error) {
	m.Calls.Inc(OpOpen)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return 0, kverr.Wrap(kverr.Initialization, m.openErr, "open memory database").WithContext(path)
	}
	m.next++
	m.handles[m.next] = path
	if m.dbs[path] == nil {
		m.dbs[path] = make(map[string][]byte)
	}
	return m.next, nil
}

// db returns the record map behind h, or nil, along with any canned
// response for op.
func (m *MemEngine) db(op string, h native.Handle) (records map[string][]byte, canned []byte, ok bool) {
	m.Calls.Inc(op)
	if raw, set := m.overrides[op]; set {
		return nil, raw, true
	}
	path, open := m.handles[h]
	if !open {
		return nil, wire.BadRequestResponse("invalid database handle"), true
	}
	return m.dbs[path], nil, false
}

func (m *MemEngine) Post(h native.Handle, envelope []byte) []byte {
	return m.write(OpPost, h, envelope, false)
}

func (m *MemEngine) Put(h native.Handle, envelope []byte) []byte {
	return m.write(OpPut, h, envelope, true)
}

func (m *MemEngine) write(op string, h native.Handle, envelope []byte, overwrite bool) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(op, h)
	if ok {
		return canned
	}
	env, err := wire.ParseEnvelope(envelope)
	if err != nil {
		return wire.SerializationErrorResponse("envelope is not valid JSON")
	}
	if env.ID == "" {
		return wire.BadRequestResponse("envelope has no id")
	}
	if _, exists := records[env.ID]; exists && !overwrite {
		return wire.BadRequestResponse("key already exists: " + env.ID)
	}
	records[env.ID] = slices.Clone(envelope)
	return wire.OkResponse(envelope)
}

func (m *MemEngine) Get(h native.Handle, id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(OpGet, h)
	if ok {
		return canned
	}
	env, exists := records[id]
	if !exists {
		return wire.NotFoundResponse()
	}
	return wire.OkResponse(env)
}

func (m *MemEngine) Delete(h native.Handle, id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(OpDelete, h)
	if ok {
		return canned
	}
	delete(records, id)
	return wire.OkResponse([]byte("true"))
}

func (m *MemEngine) Exists(h native.Handle, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, _, ok := m.db(OpExists, h)
	if ok {
		return false
	}
	_, exists := records[id]
	return exists
}

func (m *MemEngine) Keys(h native.Handle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(OpKeys, h)
	if ok {
		return canned
	}
	b, _ := json.Marshal(sortedIDs(records))
	return b
}

func (m *MemEngine) All(h native.Handle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(OpAll, h)
	if ok {
		return canned
	}
	envs := make([]json.RawMessage, 0, len(records))
	for _, id := range sortedIDs(records) {
		envs = append(envs, records[id])
	}
	b, _ := json.Marshal(envs)
	return b
}

func (m *MemEngine) Stats(h native.Handle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(OpStats, h)
	if ok {
		return canned
	}
	b, _ := json.Marshal(map[string]any{"engine": m.Name(), "entries": len(records)})
	return wire.OkResponse(b)
}

func (m *MemEngine) Clear(h native.Handle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, canned, ok := m.db(OpClear, h)
	if ok {
		return canned
	}
	clear(records)
	return wire.OkResponse([]byte("true"))
}

func (m *MemEngine) Close(h native.Handle) {
	m.Calls.Inc(OpClose)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[h]++
	delete(m.handles, h)
}

func (m *MemEngine) Release() error {
	m.Calls.Inc(OpRelease)
	return nil
}

func sortedIDs(records map[string][]byte) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
