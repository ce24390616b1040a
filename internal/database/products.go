package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

// StoredProduct is the latest known state of one deduplicated product row.
type StoredProduct struct {
	ID           int64      `json:"id"`
	CanonicalKey string     `json:"canonical_key"`
	Name         string     `json:"name"`
	Tagline      string     `json:"tagline,omitempty"`
	Description  string     `json:"description,omitempty"`
	URL          string     `json:"url,omitempty"`
	Votes        int        `json:"votes"`
	Topics       []string   `json:"topics,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Snapshot is one append-only observation of a product at one run.
type Snapshot struct {
	ID         int64     `json:"id"`
	RunID      int64     `json:"run_id"`
	ProductID  int64     `json:"product_id"`
	Votes      int       `json:"votes"`
	Tagline    string    `json:"tagline,omitempty"`
	Description string   `json:"description,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// UpsertAndSnapshot resolves each product's canonical key, upserts the
// product row (created_at is written once and never touched again), and
// appends one snapshot row per product tied to runID.
//
// The whole batch is one transaction: a constraint violation on any row
// rolls back the entire run's writes.
func (s *Store) UpsertAndSnapshot(ctx context.Context, runID int64, products []models.Product, observedAt time.Time) error {
	if len(products) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.upsertBatch(ctx, tx, runID, products, observedAt)
	})
}

func (s *Store) upsertBatch(ctx context.Context, tx *sql.Tx, runID int64, products []models.Product, observedAt time.Time) error {
	products = collapseByCanonicalKey(products)
	if len(products) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	observed := observedAt.UTC().Format(time.RFC3339)

	for _, p := range products {
		productID, err := upsertProduct(ctx, tx, p, now)
		if err != nil {
			return err
		}
		if err := insertSnapshot(ctx, tx, runID, productID, p, observed); err != nil {
			return err
		}
	}
	s.logger.Info("persisted run products", "run_id", runID, "count", len(products))
	return nil
}

// collapseByCanonicalKey keeps one observation per canonical key. The
// extractors dedup on name and URL, so one page can still yield two
// differently-titled links to the same product; the canonical key is the
// sole same-product authority, and two links to one product must not sink
// the run on the snapshot uniqueness constraint. The highest-votes
// observation wins, first seen on ties.
func collapseByCanonicalKey(products []models.Product) []models.Product {
	index := make(map[string]int, len(products))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		key := models.CanonicalKey(p)
		if i, ok := index[key]; ok {
			if p.VotesCount > out[i].VotesCount {
				out[i] = p
			}
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func upsertProduct(ctx context.Context, tx *sql.Tx, p models.Product, now string) (int64, error) {
	var postedAt sql.NullString
	if p.PostedAt != nil {
		postedAt = sql.NullString{String: p.PostedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO products (canonical_key, name, tagline, description, url, votes, topics, tags, posted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (canonical_key) DO UPDATE SET
			name        = excluded.name,
			tagline     = excluded.tagline,
			description = excluded.description,
			url         = excluded.url,
			votes       = excluded.votes,
			topics      = excluded.topics,
			tags        = excluded.tags,
			posted_at   = excluded.posted_at,
			updated_at  = excluded.updated_at
		RETURNING id`,
		models.CanonicalKey(p), p.Name, nullable(p.Tagline), nullable(p.Description),
		nullable(p.URL), p.VotesCount, marshalList(p.Topics), marshalList(p.Tags),
		postedAt, now, now,
	).Scan(&id)
	if err != nil {
		return 0, wrapErr("upsert product", err)
	}
	return id, nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, runID, productID int64, p models.Product, observed string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, product_id, votes, tagline, description, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, productID, p.VotesCount, nullable(p.Tagline), nullable(p.Description), observed,
	)
	if err != nil {
		return wrapErr("insert snapshot", err)
	}
	return nil
}

// LatestProducts returns the deduplicated product rows, highest votes first.
func (s *Store) LatestProducts(ctx context.Context, limit int) ([]StoredProduct, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_key, name, COALESCE(tagline, ''), COALESCE(description, ''),
		       COALESCE(url, ''), votes, topics, tags, COALESCE(posted_at, ''), created_at, updated_at
		FROM products
		ORDER BY votes DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, wrapErr("latest products", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ProductSnapshots returns a product's observation history, newest first.
func (s *Store) ProductSnapshots(ctx context.Context, productID int64) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, product_id, votes, COALESCE(tagline, ''), COALESCE(description, ''), observed_at
		FROM snapshots
		WHERE product_id = ?
		ORDER BY observed_at DESC, id DESC`, productID)
	if err != nil {
		return nil, wrapErr("product snapshots", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var sn Snapshot
		var observed string
		if err := rows.Scan(&sn.ID, &sn.RunID, &sn.ProductID, &sn.Votes, &sn.Tagline, &sn.Description, &observed); err != nil {
			return nil, wrapErr("scan snapshot", err)
		}
		sn.ObservedAt, _ = time.Parse(time.RFC3339, observed)
		snaps = append(snaps, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("product snapshots", err)
	}
	return snaps, nil
}

// CountProducts and CountSnapshots back tests and the stats endpoint.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	return s.count(ctx, "products")
}

func (s *Store) CountSnapshots(ctx context.Context) (int, error) {
	return s.count(ctx, "snapshots")
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, wrapErr("count "+table, err)
	}
	return n, nil
}

func scanProducts(rows *sql.Rows) ([]StoredProduct, error) {
	var products []StoredProduct
	for rows.Next() {
		var p StoredProduct
		var topics, tags, postedAt, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.CanonicalKey, &p.Name, &p.Tagline, &p.Description,
			&p.URL, &p.Votes, &topics, &tags, &postedAt, &createdAt, &updatedAt); err != nil {
			return nil, wrapErr("scan product", err)
		}
		p.Topics = unmarshalList(topics)
		p.Tags = unmarshalList(tags)
		if postedAt != "" {
			if t, err := time.Parse(time.RFC3339, postedAt); err == nil {
				p.PostedAt = &t
			}
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("scan products", err)
	}
	return products, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func marshalList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalList(raw string) []string {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil || len(list) == 0 {
		return nil
	}
	return list
}
