package lmdbkv

import (
	"errors"
	"log/slog"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/roach88/lmdbkv/internal/dbpath"
	"github.com/roach88/lmdbkv/internal/kverr"
	"github.com/roach88/lmdbkv/internal/native"
	"github.com/roach88/lmdbkv/internal/wire"
)

// Data is a record's payload: any JSON-serializable values keyed by name.
// Numbers read back from the engine are float64; writes holding integers a
// float64 cannot represent exactly fail with a VALIDATION error.
type Data = wire.Data

// Client is one open database.
//
// A Client is not safe for concurrent use; callers that share one across
// goroutines must serialize access themselves.
type Client struct {
	engine Engine
	owned  bool
	handle native.Handle
	path   string

	maxKeyBytes     int
	maxPayloadBytes int

	logger *slog.Logger
	closed bool
}

// Open resolves name to a database path, makes sure its directory exists
// and is writable, and opens it in the engine.
//
// name may be a bare name ("cache"), a file name ("sessions.lmdb") or an
// absolute path.
func Open(name string, opts ...Option) (*Client, error) {
	o := options{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	cfg := o.config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	resolver := dbpath.NewResolver()
	resolver.Namespace = cfg.Namespace
	resolver.Extension = cfg.Extension
	resolver.BaseDir = cfg.DataDir

	path, err := resolver.Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := dbpath.EnsureDirectoryExists(path); err != nil {
		return nil, err
	}

	engine, owned := o.engine, false
	if engine == nil {
		engine, err = LoadEngine(cfg, o.logger)
		if err != nil {
			return nil, err
		}
		owned = true
	}

	h, err := engine.Open(path)
	if err == nil && h == 0 {
		err = kverr.New(kverr.Initialization, "engine returned a null handle").WithContext(path)
	}
	if err != nil {
		if owned {
			if rerr := engine.Release(); rerr != nil {
				o.logger.Warn("release engine after failed open", "error", rerr)
			}
		}
		if kverr.KindOf(err) == kverr.Unknown {
			err = kverr.Wrap(kverr.Initialization, err, "open database").WithContext(path)
		}
		return nil, err
	}

	o.logger.Info("database opened", "path", path, "engine", engine.Name())
	return &Client{
		engine:          engine,
		owned:           owned,
		handle:          h,
		path:            path,
		maxKeyBytes:     cfg.MaxKeyBytes,
		maxPayloadBytes: cfg.MaxPayloadBytes,
		logger:          o.logger,
	}, nil
}

// Path returns the resolved database path.
func (c *Client) Path() string {
	return c.path
}

// Create stores data under a new key and returns data. Engines reject keys
// that already exist.
func (c *Client) Create(key string, data Data) (Data, error) {
	if err := c.write("create", key, data, c.engine.Post); err != nil {
		return nil, err
	}
	return data, nil
}

// Replace stores data under key, overwriting any existing record, and
// returns data.
func (c *Client) Replace(key string, data Data) (Data, error) {
	if err := c.write("replace", key, data, c.engine.Put); err != nil {
		return nil, err
	}
	return data, nil
}

// Merge reads the record at key, overlays the top-level fields of partial
// and replaces the record with the result, which it returns. Errors from
// the read or the replace are returned unchanged.
func (c *Client) Merge(key string, partial Data) (Data, error) {
	existing, err := c.Read(key)
	if err != nil {
		return nil, err
	}
	merged := make(Data, len(existing)+len(partial))
	maps.Copy(merged, existing)
	maps.Copy(merged, partial)
	if _, err := c.Replace(key, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Read returns the data stored at key.
func (c *Client) Read(key string) (Data, error) {
	if err := c.ready(key); err != nil {
		return nil, err
	}
	raw, err := c.call("read", key, c.engine.Get(c.handle, key))
	if err != nil {
		return nil, err
	}
	data, err := wire.Decode(raw)
	if err != nil {
		return nil, withKey(err, key)
	}
	return data, nil
}

// Delete removes key. Deleting an absent key succeeds.
func (c *Client) Delete(key string) (bool, error) {
	if err := c.ready(key); err != nil {
		return false, err
	}
	raw, err := c.call("delete", key, c.engine.Delete(c.handle, key))
	if err != nil {
		return false, err
	}
	ok, err := wire.DecodeStatus(raw)
	if kverr.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, withKey(err, key)
	}
	return ok, nil
}

// Exists reports whether Read(key) would succeed.
func (c *Client) Exists(key string) (bool, error) {
	if err := c.ready(key); err != nil {
		return false, err
	}
	c.logger.Debug("engine call", "op", "exists", "key", key)
	return c.engine.Exists(c.handle, key), nil
}

// Keys returns every key in the database.
func (c *Client) Keys() ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.call("keys", "", c.engine.Keys(c.handle))
	if err != nil {
		return nil, err
	}
	return wire.DecodeKeys(raw)
}

// All returns every record, keyed by id.
func (c *Client) All() (map[string]Data, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.call("all", "", c.engine.All(c.handle))
	if err != nil {
		return nil, err
	}
	return wire.DecodeList(raw)
}

// Clear removes every record.
func (c *Client) Clear() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	raw, err := c.call("clear", "", c.engine.Clear(c.handle))
	if err != nil {
		return false, err
	}
	return wire.DecodeStatus(raw)
}

// Stats returns the engine's statistics for this database. The fields are
// engine-defined.
func (c *Client) Stats() (Data, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.call("stats", "", c.engine.Stats(c.handle))
	if err != nil {
		return nil, err
	}
	return wire.DecodeStats(raw)
}

// Close releases the database handle. Further calls to Close are no-ops;
// every other method fails with ErrClosed.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.engine.Close(c.handle)
	c.handle = 0
	c.logger.Info("database closed", "path", c.path)

	if !c.owned {
		return nil
	}
	if err := c.engine.Release(); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return e
		}
		return kverr.Wrap(kverr.NativeInterop, err, "release engine")
	}
	return nil
}

type writeFunc func(native.Handle, []byte) []byte

func (c *Client) write(op, key string, data Data, send writeFunc) error {
	if err := c.ready(key); err != nil {
		return err
	}
	envelope, err := c.encode(key, data)
	if err != nil {
		return err
	}
	raw, err := c.call(op, key, send(c.handle, envelope))
	if err != nil {
		return err
	}
	resp, err := wire.ParseResponse(raw)
	if err != nil {
		return err
	}
	return withKey(resp.Err(), key)
}

func (c *Client) encode(key string, data Data) ([]byte, error) {
	payload, err := wire.MarshalData(data)
	if err != nil {
		return nil, withKey(err, key)
	}
	if len(payload) > c.maxPayloadBytes {
		return nil, kverr.Newf(kverr.Validation, "data is %d bytes, limit is %d", len(payload), c.maxPayloadBytes).WithContext(key)
	}
	envelope, err := wire.EncodeEnvelope(key, payload)
	if err != nil {
		return nil, withKey(err, key)
	}
	return envelope, nil
}

// call logs an engine call and turns a null response into an error.
func (c *Client) call(op, key string, raw []byte) ([]byte, error) {
	c.logger.Debug("engine call", "op", op, "key", key, "bytes", len(raw))
	if raw == nil {
		return nil, kverr.Newf(kverr.Engine, "engine returned no response to %s", op).WithContext(key)
	}
	return raw, nil
}

func (c *Client) check() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

// ready checks the client is open and key is acceptable to the engine.
func (c *Client) ready(key string) error {
	if err := c.check(); err != nil {
		return err
	}
	switch {
	case key == "":
		return kverr.New(kverr.Validation, "key is empty")
	case len(key) > c.maxKeyBytes:
		return kverr.Newf(kverr.Validation, "key is %d bytes, limit is %d", len(key), c.maxKeyBytes).WithContext(truncate(key))
	case !utf8.ValidString(key):
		return kverr.New(kverr.Validation, "key is not valid UTF-8")
	case strings.IndexByte(key, 0) >= 0:
		return kverr.New(kverr.Validation, "key contains a NUL byte")
	}
	return nil
}

func withKey(err error, key string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Context == "" {
		return e.WithContext(key)
	}
	return err
}

func truncate(key string) string {
	const n = 64
	if len(key) <= n {
		return key
	}
	return key[:n] + "..."
}
