// Package database persists fetch runs, deduplicated products, and per-run
// snapshots to a local SQLite file.
//
// Foreign-key enforcement in SQLite is connection-scoped, not stored in the
// file, so it is asserted through DSN pragmas that apply to every connection
// the pool opens. All writes for one run happen inside a single transaction
// on a single connection.
package database

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle. Raw driver errors never cross this
// package's boundary; callers see StorageError or IntegrityError.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the database at path. Pass ":memory:"
// for an in-memory database in tests. Parent directories are created.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &StorageError{Op: "mkdir", Err: err}
			}
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	// One connection serializes writes and keeps :memory: databases from
	// splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "ping", Err: err}
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "database"),
	}, nil
}

// dsn builds the connection string with per-connection pragmas: foreign-key
// enforcement, WAL journaling, and a busy timeout for overlapping runs.
func dsn(path string) string {
	base := "file:" + path
	if path == ":memory:" {
		base = "file::memory:"
	}
	return base + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// wrapErr converts a raw database error into the store's typed errors.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraintViolation(err) {
		return &IntegrityError{Op: op, Err: err}
	}
	return &StorageError{Op: op, Err: err}
}
