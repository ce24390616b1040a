package database

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid        TEXT    NOT NULL,
    source      TEXT    NOT NULL,
    search_term TEXT    NOT NULL DEFAULT '',
    fetch_limit INTEGER NOT NULL DEFAULT 0,
    status      TEXT    NOT NULL CHECK (status IN ('success', 'partial', 'failure')),
    error       TEXT,
    fetched_at  TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    canonical_key TEXT    NOT NULL UNIQUE,
    name          TEXT    NOT NULL,
    tagline       TEXT,
    description   TEXT,
    url           TEXT,
    votes         INTEGER NOT NULL DEFAULT 0,
    topics        TEXT    NOT NULL DEFAULT '[]',
    tags          TEXT    NOT NULL DEFAULT '[]',
    posted_at     TEXT,
    created_at    TEXT    NOT NULL,
    updated_at    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      INTEGER NOT NULL REFERENCES runs(id),
    product_id  INTEGER NOT NULL REFERENCES products(id),
    votes       INTEGER NOT NULL DEFAULT 0,
    tagline     TEXT,
    description TEXT,
    observed_at TEXT    NOT NULL,
    UNIQUE (run_id, product_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_fetched_at ON runs(fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_product ON snapshots(product_id, observed_at DESC);
`

// InitSchema creates the three tables and their constraints if absent.
// Idempotent: every statement uses IF NOT EXISTS.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &StorageError{Op: "init schema", Err: err}
	}
	return nil
}
