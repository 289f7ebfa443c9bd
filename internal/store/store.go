// Package store persists exported capture sessions in SQLite so takes can be
// queried across recording sessions.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested export does not exist.
var ErrNotFound = errors.New("not found")

// Pragmas applied to every connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// Store owns the SQLite handle behind the export and take repositories.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path and brings its schema
// up to date.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Exports write several rows in one transaction; one connection keeps
	// writers from tripping over each other.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for ad hoc queries in tests and tooling.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Path() string { return s.path }
