package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(context.Background()))
	return store
}

func testProduct(t *testing.T, name, url string, votes int) models.Product {
	t.Helper()
	p, err := models.NewProduct(name,
		models.WithURL(url),
		models.WithVotes(votes),
		models.WithTagline(name+" tagline"),
	)
	require.NoError(t, err)
	return p
}

func TestInitSchemaIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InitSchema(context.Background()))
}

func TestRecordRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := models.Success(nil, "api", "ai", 10)
	id, err := store.RecordRun(ctx, result, "")
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusSuccess, runs[0].Status)
	assert.Equal(t, "api", runs[0].Source)
	assert.Equal(t, "ai", runs[0].SearchTerm)
	assert.NotEmpty(t, runs[0].UUID)
}

func TestRecordRunRejectsInvalidStatus(t *testing.T) {
	store := newTestStore(t)

	_, err := store.RecordRun(context.Background(), models.Success(nil, "api", "ai", 10), "exploded")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "nothing is written when validation fails")
}

func TestDeriveStatus(t *testing.T) {
	p := testProduct(t, "Cursor", "https://ph.com/products/cursor", 10)

	assert.Equal(t, StatusSuccess, DeriveStatus(models.Success([]models.Product{p}, "api", "ai", 10)))
	assert.Equal(t, StatusFailure, DeriveStatus(models.Failure("api", "boom", true, "ai", 10)))

	partial := models.Failure("api", "boom", true, "ai", 10)
	partial.Products = []models.Product{p}
	assert.Equal(t, StatusPartial, DeriveStatus(partial))
}

func TestUpsertDeduplicatesAcrossRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testProduct(t, "Cursor", "https://ph.com/products/cursor", 100)
	run1, err := store.SaveResult(ctx, models.Success([]models.Product{first}, "api", "ai", 10), "")
	require.NoError(t, err)

	// Same canonical URL with different casing and a tracking query: still
	// the same product.
	second := testProduct(t, "Cursor", "https://PH.com/products/cursor?ref=digest", 250)
	run2, err := store.SaveResult(ctx, models.Success([]models.Product{second}, "scraper", "ai", 10), "")
	require.NoError(t, err)
	assert.NotEqual(t, run1, run2)

	nProducts, err := store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nProducts, "one deduplicated product row")

	nSnapshots, err := store.CountSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nSnapshots, "one snapshot per run")

	products, err := store.LatestProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 250, products[0].Votes, "the product row carries the latest state")

	snaps, err := store.ProductSnapshots(ctx, products[0].ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	votes := []int{snaps[0].Votes, snaps[1].Votes}
	assert.ElementsMatch(t, []int{100, 250}, votes, "history preserves both observations")
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testProduct(t, "Cursor", "https://ph.com/products/cursor", 100)
	_, err := store.SaveResult(ctx, models.Success([]models.Product{p}, "api", "ai", 10), "")
	require.NoError(t, err)

	before, err := store.LatestProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, before, 1)

	// RFC3339 has second resolution; cross a second boundary so updated_at
	// provably advances.
	time.Sleep(1100 * time.Millisecond)

	p2 := testProduct(t, "Cursor", "https://ph.com/products/cursor", 300)
	_, err = store.SaveResult(ctx, models.Success([]models.Product{p2}, "api", "ai", 10), "")
	require.NoError(t, err)

	after, err := store.LatestProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.True(t, after[0].CreatedAt.Equal(before[0].CreatedAt), "created_at is written once")
	assert.True(t, after[0].UpdatedAt.After(before[0].UpdatedAt), "updated_at advances")
}

func TestFailedRunWritesNoProducts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveResult(ctx, models.Failure("api", "rate limited", true, "ai", 10), "")
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailure, runs[0].Status)
	assert.Equal(t, "rate limited", runs[0].Error)

	n, err := store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrphanSnapshotRejectedAndRolledBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testProduct(t, "Cursor", "https://ph.com/products/cursor", 100)
	runID, err := store.SaveResult(ctx, models.Success([]models.Product{p}, "api", "ai", 10), "")
	require.NoError(t, err)
	require.Positive(t, runID)

	productsBefore, _ := store.CountProducts(ctx)
	snapshotsBefore, _ := store.CountSnapshots(ctx)

	// A run id that was never recorded violates the foreign key.
	batch := []models.Product{
		testProduct(t, "Briefly", "https://ph.com/products/briefly", 50),
	}
	err = store.UpsertAndSnapshot(ctx, runID+999, batch, time.Now().UTC())

	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)

	productsAfter, _ := store.CountProducts(ctx)
	snapshotsAfter, _ := store.CountSnapshots(ctx)
	assert.Equal(t, productsBefore, productsAfter, "the product upsert rolled back too")
	assert.Equal(t, snapshotsBefore, snapshotsAfter)
}

func TestBatchCollapsesDuplicateCanonicalKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// The anchor extractor dedups on (name, url), so a title link and a
	// "Learn more" link to the same product both survive into the batch.
	title, err := models.NewProduct("Cursor",
		models.WithURL("https://ph.com/products/cursor"),
		models.WithVotes(120))
	require.NoError(t, err)
	learnMore, err := models.NewProduct("Cursor - The AI Editor",
		models.WithURL("https://ph.com/products/cursor"),
		models.WithVotes(80))
	require.NoError(t, err)

	batch := []models.Product{learnMore, title}
	runID, err := store.SaveResult(ctx, models.Success(batch, "scraper", "ai", 10), "")
	require.NoError(t, err, "two links to one product must not sink the run")
	assert.Positive(t, runID)

	nProducts, err := store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nProducts)

	nSnapshots, err := store.CountSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nSnapshots, "one snapshot per product per run")

	products, err := store.LatestProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 120, products[0].Votes, "the highest-votes observation wins")

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusSuccess, runs[0].Status)
}

func TestSaveResultRollsBackRunOnBatchFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Sabotage the batch write so it fails after the run insert.
	_, err := store.db.ExecContext(ctx, "DROP TABLE snapshots")
	require.NoError(t, err)

	p := testProduct(t, "Cursor", "https://ph.com/products/cursor", 100)
	_, err = store.SaveResult(ctx, models.Success([]models.Product{p}, "api", "ai", 10), "")
	require.Error(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "the run row rolls back with the failed batch")

	nProducts, err := store.CountProducts(ctx)
	require.NoError(t, err)
	assert.Zero(t, nProducts)
}

func TestIsConstraintViolation(t *testing.T) {
	assert.False(t, isConstraintViolation(nil))
	assert.False(t, isConstraintViolation(errors.New("failed to satisfy the solver constraint")),
		"error text mentioning the word is not a constraint violation")

	store := newTestStore(t)
	ctx := context.Background()
	insert := `INSERT INTO products (canonical_key, name, created_at, updated_at) VALUES ('k', ?, 't', 't')`
	_, err := store.db.ExecContext(ctx, insert, "a")
	require.NoError(t, err)
	_, err = store.db.ExecContext(ctx, insert, "b")
	require.Error(t, err)
	assert.True(t, isConstraintViolation(err))
}

func TestDuplicateSnapshotPerRunRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := testProduct(t, "Cursor", "https://ph.com/products/cursor", 100)
	runID, err := store.SaveResult(ctx, models.Success([]models.Product{p}, "api", "ai", 10), "")
	require.NoError(t, err)

	// Re-observing the same product within the same run trips the
	// (run_id, product_id) uniqueness constraint.
	err = store.UpsertAndSnapshot(ctx, runID, []models.Product{p}, time.Now().UTC())
	var integrityErr *IntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

func TestLatestProductsOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := []models.Product{
		testProduct(t, "Briefly", "https://ph.com/products/briefly", 50),
		testProduct(t, "Cursor", "https://ph.com/products/cursor", 300),
		testProduct(t, "Aider", "https://ph.com/products/aider", 50),
	}
	_, err := store.SaveResult(ctx, models.Success(batch, "api", "ai", 10), "")
	require.NoError(t, err)

	products, err := store.LatestProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Cursor", products[0].Name)
	assert.Equal(t, "Aider", products[1].Name, "ties break on name ascending")
	assert.Equal(t, "Briefly", products[2].Name)
}

func TestTopicsAndTagsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := models.NewProduct("Cursor",
		models.WithURL("https://ph.com/products/cursor"),
		models.WithTopics([]string{"Developer Tools", "AI"}),
	)
	require.NoError(t, err)
	p = p.WithTags([]string{"coding", "assistant"})

	_, err = store.SaveResult(ctx, models.Success([]models.Product{p}, "api", "ai", 10), "")
	require.NoError(t, err)

	products, err := store.LatestProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"developer tools", "ai"}, products[0].Topics)
	assert.Equal(t, []string{"coding", "assistant"}, products[0].Tags)
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := t.TempDir() + "/nested/deeper/tracker.db"
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.InitSchema(context.Background()))
}
