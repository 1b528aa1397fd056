// Package refengine is a pure-Go engine that speaks the native wire
// protocol, backed by SQLite through internal/store.
//
// It exists so clients and tools can run where no native build is
// available, and as an executable description of the protocol: create of
// an existing key answers BadRequest, put overwrites, delete of an absent
// key answers Ok, and enumerations are bare JSON arrays. Storage failures
// answer with a null response, which clients report as engine errors.
package refengine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/native"
	"github.com/roach88/lmdbkv/internal/store"
	"github.com/roach88/lmdbkv/internal/wire"
)

// Name is reported by Engine.Name.
const Name = "reference"

// Engine implements native.Engine. It is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	next    native.Handle
	handles map[native.Handle]*db
	logger  *slog.Logger
}

type db struct {
	store *store.Store

	// session identifies this open in stats and logs. Handles restart at 1
	// in every Engine, so they cannot tell two opens of one file apart.
	session string
}

var _ native.Engine = (*Engine)(nil)

// New returns an engine with no open databases.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		handles: make(map[native.Handle]*db),
		logger:  logger,
	}
}

// Name implements native.Engine.
func (e *Engine) Name() string { return Name }

// Open implements native.Engine.
func (e *Engine) Open(path string) (native.Handle, error) {
	s, err := store.Open(path)
	if err != nil {
		return 0, kverr.Wrap(kverr.Initialization, err, "open reference database").WithContext(path)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	h := e.next
	d := &db{store: s, session: uuid.NewString()}
	e.handles[h] = d
	e.logger.Debug("reference database opened", "path", path, "session", d.session)
	return h, nil
}

func (e *Engine) lookup(h native.Handle) *db {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handles[h]
}

// Post implements native.Engine.
func (e *Engine) Post(h native.Handle, envelope []byte) []byte {
	return e.write(h, envelope, false)
}

// Put implements native.Engine.
func (e *Engine) Put(h native.Handle, envelope []byte) []byte {
	return e.write(h, envelope, true)
}

func (e *Engine) write(h native.Handle, envelope []byte, overwrite bool) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}

	env, err := wire.ParseEnvelope(envelope)
	if err != nil {
		return wire.SerializationErrorResponse("envelope is not valid JSON")
	}
	if env.ID == "" {
		return wire.BadRequestResponse("envelope has no id")
	}
	var data wire.Data
	if err := json.Unmarshal(env.Data, &data); err != nil || data == nil {
		return wire.BadRequestResponse("envelope data must be a JSON object")
	}

	rec := store.Record{ID: env.ID, Fingerprint: env.Fingerprint, Data: string(env.Data)}
	ctx := context.Background()
	if overwrite {
		err = d.store.Upsert(ctx, rec)
	} else {
		var inserted bool
		inserted, err = d.store.Insert(ctx, rec)
		if err == nil && !inserted {
			return wire.BadRequestResponse("key already exists: " + env.ID)
		}
	}
	if err != nil {
		e.logger.Error("reference write failed", "session", d.session, "id", env.ID, "error", err)
		return nil
	}
	return wire.OkResponse(envelope)
}

// Get implements native.Engine.
func (e *Engine) Get(h native.Handle, id string) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}
	rec, err := d.store.Get(context.Background(), id)
	if errors.Is(err, store.ErrNotFound) {
		return wire.NotFoundResponse()
	}
	if err != nil {
		e.logger.Error("reference read failed", "session", d.session, "id", id, "error", err)
		return nil
	}
	env, err := encodeRecord(rec)
	if err != nil {
		return wire.SerializationErrorResponse(err.Error())
	}
	return wire.OkResponse(env)
}

// Delete implements native.Engine.
func (e *Engine) Delete(h native.Handle, id string) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}
	if _, err := d.store.Delete(context.Background(), id); err != nil {
		e.logger.Error("reference delete failed", "session", d.session, "id", id, "error", err)
		return nil
	}
	return wire.OkResponse([]byte("true"))
}

// Exists implements native.Engine.
func (e *Engine) Exists(h native.Handle, id string) bool {
	d := e.lookup(h)
	if d == nil {
		return false
	}
	ok, err := d.store.Has(context.Background(), id)
	if err != nil {
		e.logger.Error("reference exists failed", "session", d.session, "id", id, "error", err)
		return false
	}
	return ok
}

// Keys implements native.Engine.
func (e *Engine) Keys(h native.Handle) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}
	keys, err := d.store.Keys(context.Background())
	if err != nil {
		e.logger.Error("reference keys failed", "session", d.session, "error", err)
		return nil
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return wire.SerializationErrorResponse(err.Error())
	}
	return b
}

// All implements native.Engine.
func (e *Engine) All(h native.Handle) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}
	records, err := d.store.List(context.Background())
	if err != nil {
		e.logger.Error("reference enumeration failed", "session", d.session, "error", err)
		return nil
	}
	envs := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		env, err := encodeRecord(rec)
		if err != nil {
			return wire.SerializationErrorResponse(err.Error())
		}
		envs = append(envs, env)
	}
	b, err := json.Marshal(envs)
	if err != nil {
		return wire.SerializationErrorResponse(err.Error())
	}
	return b
}

// Stats implements native.Engine.
func (e *Engine) Stats(h native.Handle) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}
	st, err := d.store.Stats(context.Background())
	if err != nil {
		e.logger.Error("reference stats failed", "session", d.session, "error", err)
		return nil
	}
	b, err := json.Marshal(map[string]any{
		"engine":         Name,
		"session":        d.session,
		"path":           d.store.Path(),
		"entries":        st.Records,
		"data_bytes":     st.DataBytes,
		"last_seq":       st.LastSeq,
		"schema_version": st.SchemaVersion,
	})
	if err != nil {
		return wire.SerializationErrorResponse(err.Error())
	}
	return wire.OkResponse(b)
}

// Clear implements native.Engine.
func (e *Engine) Clear(h native.Handle) []byte {
	d := e.lookup(h)
	if d == nil {
		return wire.BadRequestResponse("invalid database handle")
	}
	n, err := d.store.Clear(context.Background())
	if err != nil {
		e.logger.Error("reference clear failed", "session", d.session, "error", err)
		return nil
	}
	e.logger.Debug("reference database cleared", "session", d.session, "removed", n)
	return wire.OkResponse([]byte("true"))
}

// Close implements native.Engine. Unknown handles are ignored.
func (e *Engine) Close(h native.Handle) {
	e.mu.Lock()
	d := e.handles[h]
	delete(e.handles, h)
	e.mu.Unlock()
	if d == nil {
		return
	}
	if err := d.store.Close(); err != nil {
		e.logger.Warn("close reference database", "session", d.session, "error", err)
	}
}

// Release implements native.Engine. It closes any handles still open.
func (e *Engine) Release() error {
	e.mu.Lock()
	open := e.handles
	e.handles = make(map[native.Handle]*db)
	e.mu.Unlock()

	var errs []error
	for _, d := range open {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// OpenCount reports the number of databases currently open.
func (e *Engine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

func encodeRecord(rec store.Record) ([]byte, error) {
	env := wire.Envelope{ID: rec.ID, Fingerprint: rec.Fingerprint, Data: json.RawMessage(rec.Data)}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return b, nil
}
