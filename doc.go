// Package lmdbkv gives a Go process access to the lmdbkv storage engine, a
// natively built memory-mapped key-value store reached through its C ABI.
//
// A Client owns one open database:
//
//	engine, err := lmdbkv.LoadEngine(lmdbkv.DefaultConfig(), nil)
//	if err != nil {
//		return err
//	}
//	defer engine.Release()
//
//	db, err := lmdbkv.Open("sessions", lmdbkv.WithEngine(engine))
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	_, err = db.Create("user:1", lmdbkv.Data{"name": "ada"})
//
// Loading the engine searches for the shared library once; the result can
// be passed to any number of clients. Open without WithEngine loads a
// private engine and releases it on Close.
//
// Every operation returns a *Error on failure. Match kinds with errors.Is
// against the exported sentinels or with KindOf:
//
//	if errors.Is(err, lmdbkv.ErrNotFound) { ... }
//
// A Client is not safe for concurrent use. Separate clients, in this or
// other processes, may open the same database; the engine arbitrates.
package lmdbkv
