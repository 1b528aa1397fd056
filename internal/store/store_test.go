package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_DirectoryMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "test.db"))
	if err == nil {
		t.Fatal("Open() succeeded in a missing directory")
	}
}

func TestClose_Twice(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func TestInsert_RejectsExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.Insert(ctx, Record{ID: "k", Fingerprint: "f1", Data: `{"v":1}`})
	if err != nil || !ok {
		t.Fatalf("first Insert() = %v, %v", ok, err)
	}

	ok, err = s.Insert(ctx, Record{ID: "k", Fingerprint: "f2", Data: `{"v":2}`})
	if err != nil {
		t.Fatalf("second Insert() failed: %v", err)
	}
	if ok {
		t.Error("second Insert() reported a new record")
	}

	rec, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rec.Data != `{"v":1}` || rec.Fingerprint != "f1" {
		t.Errorf("stored record was modified: %+v", rec)
	}
}

func TestUpsert_Overwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, Record{ID: "k", Data: `{"v":1}`}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := s.Upsert(ctx, Record{ID: "k", Data: `{"v":2}`}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	rec, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rec.Data != `{"v":2}` {
		t.Errorf("Data = %s, want {\"v\":2}", rec.Data)
	}
	if rec.Seq != 2 {
		t.Errorf("Seq = %d, want 2", rec.Seq)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, Record{ID: "k", Data: `{}`}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	removed, err := s.Delete(ctx, "k")
	if err != nil || !removed {
		t.Fatalf("Delete() = %v, %v", removed, err)
	}
	removed, err = s.Delete(ctx, "k")
	if err != nil || removed {
		t.Fatalf("second Delete() = %v, %v", removed, err)
	}

	has, err := s.Has(ctx, "k")
	if err != nil || has {
		t.Errorf("Has() after delete = %v, %v", has, err)
	}
}

func TestListAndKeys_OrderedByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c", "B"} {
		if err := s.Upsert(ctx, Record{ID: id, Data: `{}`}); err != nil {
			t.Fatalf("Upsert(%q) failed: %v", id, err)
		}
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() failed: %v", err)
	}
	want := []string{"B", "a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(records) != 4 || records[0].ID != "B" {
		t.Errorf("List() = %+v", records)
	}
}

func TestEmptyEnumerationsAreNotNil(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	keys, err := s.Keys(ctx)
	if err != nil || keys == nil {
		t.Errorf("Keys() = %v, %v; want empty non-nil", keys, err)
	}
	records, err := s.List(ctx)
	if err != nil || records == nil {
		t.Errorf("List() = %v, %v; want empty non-nil", records, err)
	}
}

func TestClearAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := s.Upsert(ctx, Record{ID: id, Data: "{\"x\":\"\u00e9\"}"}); err != nil {
			t.Fatalf("Upsert(%q) failed: %v", id, err)
		}
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Records != 2 || st.LastSeq != 2 || st.SchemaVersion != currentSchemaVersion {
		t.Errorf("Stats() = %+v", st)
	}
	// two bytes for the accented letter
	if st.DataBytes != 2*int64(len(`{"x":"`)+2+len(`"}`)) {
		t.Errorf("DataBytes = %d", st.DataBytes)
	}

	n, err := s.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Clear() = %d, %v", n, err)
	}

	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Records != 0 {
		t.Errorf("Records after clear = %d", st.Records)
	}
}
