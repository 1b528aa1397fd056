// Package store provides SQLite-backed record storage for the reference engine.
//
// Each database file holds one records table keyed by id. A record keeps the
// envelope fingerprint and the data exactly as written, plus a write
// sequence number.
//
// # Ordering
//
//   - seq INTEGER is one more than the highest seq present at write time
//   - Enumerations are ordered by id COLLATE BINARY, so results are identical
//     across runs
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite allows one writer at a time
package store
