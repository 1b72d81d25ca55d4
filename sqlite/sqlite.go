// Package sqlite implements pipeline.Store on an embedded SQLite database,
// for single-process deployments and tests that have no PostgreSQL at hand.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements pipeline.Store using SQLite via database/sql.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore on an already opened database.
func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens the database file at path (":memory:" for a private in-memory
// database). SQLite has a single writer, so the pool is pinned to one
// connection; this also keeps an in-memory database alive between calls.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("pipeline: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pipeline: ping sqlite: %w", err)
	}
	return New(db), nil
}

// dsn appends the driver options to path, which may already carry a query
// string of its own (file:x.db?cache=shared).
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000"
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func now() time.Time {
	return time.Now().UTC()
}
