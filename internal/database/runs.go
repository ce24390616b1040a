package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

// RunStatus is the terminal classification of one fetch-and-persist cycle.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusFailure RunStatus = "failure"
)

func validStatus(s RunStatus) bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusFailure
}

// DeriveStatus classifies a fetch result: no error is success, an error with
// recovered products is partial, an error with nothing is failure.
func DeriveStatus(result models.FetchResult) RunStatus {
	if result.OK() {
		return StatusSuccess
	}
	if len(result.Products) > 0 {
		return StatusPartial
	}
	return StatusFailure
}

// Run is one recorded fetch attempt.
type Run struct {
	ID         int64     `json:"id"`
	UUID       string    `json:"uuid"`
	Source     string    `json:"source"`
	SearchTerm string    `json:"search_term"`
	Limit      int       `json:"limit"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// RecordRun inserts one runs row and returns its id. An empty status is
// derived from the result; an explicit status outside the allowed set is a
// caller error, rejected before any write.
func (s *Store) RecordRun(ctx context.Context, result models.FetchResult, status RunStatus) (int64, error) {
	if status == "" {
		status = DeriveStatus(result)
	}
	if !validStatus(status) {
		return 0, ErrInvalidStatus
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertRun(ctx, tx, result, status)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, result models.FetchResult, status RunStatus) (int64, error) {
	var errText sql.NullString
	if result.Error != "" {
		errText = sql.NullString{String: result.Error, Valid: true}
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO runs (uuid, source, search_term, fetch_limit, status, error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		uuid.NewString(), result.Source, result.SearchTerm, result.Limit,
		string(status), errText, result.FetchedAt.UTC().Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return 0, wrapErr("record run", err)
	}
	return id, nil
}

// SaveResult records the run and, unless the run failed outright, upserts
// its products and appends their snapshots. The run row and the batch
// commit in one transaction, so a failed batch never leaves behind a
// durable run claiming success. Returns the run id.
func (s *Store) SaveResult(ctx context.Context, result models.FetchResult, status RunStatus) (int64, error) {
	if status == "" {
		status = DeriveStatus(result)
	}
	if !validStatus(status) {
		return 0, ErrInvalidStatus
	}

	var runID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := insertRun(ctx, tx, result, status)
		if err != nil {
			return err
		}
		runID = id
		if status == StatusFailure {
			return nil
		}
		return s.upsertBatch(ctx, tx, id, result.Products, result.FetchedAt)
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uuid, source, search_term, fetch_limit, status, COALESCE(error, ''), fetched_at
		FROM runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, wrapErr("list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status, fetchedAt string
		if err := rows.Scan(&r.ID, &r.UUID, &r.Source, &r.SearchTerm, &r.Limit, &status, &r.Error, &fetchedAt); err != nil {
			return nil, wrapErr("scan run", err)
		}
		r.Status = RunStatus(status)
		r.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list runs", err)
	}
	return runs, nil
}
