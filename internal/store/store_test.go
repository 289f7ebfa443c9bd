package store

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestStore opens a Store on a fresh file that is removed with the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "mudra.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew(t *testing.T) {
	t.Run("creates the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fresh.db")

		s, err := New(path)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(path); err != nil {
			t.Errorf("database file missing: %v", err)
		}
		if s.Path() != path {
			t.Errorf("Path() = %q, want %q", s.Path(), path)
		}
	})

	t.Run("reopening keeps the schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reopen.db")
		for i := 0; i < 2; i++ {
			s, err := New(path)
			if err != nil {
				t.Fatalf("open #%d: %v", i+1, err)
			}
			s.Close()
		}
	})

	t.Run("bad directory", func(t *testing.T) {
		if _, err := New(filepath.Join(t.TempDir(), "missing", "x.db")); err == nil {
			t.Error("expected error for a path in a missing directory")
		}
	})
}

func TestSchema(t *testing.T) {
	s := newTestStore(t)

	objects := map[string]string{
		"exports":             "table",
		"takes":               "table",
		"idx_takes_export_id": "index",
		"idx_takes_quality":   "index",
	}
	for name, kind := range objects {
		var got string
		err := s.DB().QueryRow(`SELECT type FROM sqlite_master WHERE name = ?`, name).Scan(&got)
		if err != nil || got != kind {
			t.Errorf("%s: type %q, err %v; want %s", name, got, err, kind)
		}
	}
}

func TestPragmas(t *testing.T) {
	s := newTestStore(t)

	var fk, timeout int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if err := s.DB().QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if fk != 1 || timeout != 5000 {
		t.Errorf("foreign_keys = %d, busy_timeout = %d", fk, timeout)
	}
}

func TestClose(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.DB().Ping(); err == nil {
		t.Error("Ping() should fail after Close()")
	}
}
