package store

import (
	"context"
	"fmt"
)

// Record is one stored key and its data.
type Record struct {
	ID          string
	Fingerprint string

	// Data is the record's JSON object text as written.
	Data string

	// Seq is assigned by the store on write.
	Seq int64
}

// Insert adds a record if its id is new. Reports false, with no error, when
// the id already exists; the stored record is left untouched.
func (s *Store) Insert(ctx context.Context, rec Record) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, fingerprint, data, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records))
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Fingerprint, rec.Data)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	return n == 1, nil
}

// Upsert writes a record, overwriting any existing one with the same id.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, fingerprint, data, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records))
		ON CONFLICT(id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			data = excluded.data,
			seq = excluded.seq
	`, rec.ID, rec.Fingerprint, rec.Data)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Delete removes a record. Reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return n > 0, nil
}

// Clear removes every record and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	return n, nil
}
