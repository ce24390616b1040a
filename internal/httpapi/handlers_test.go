package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/ph-ai-tracker/internal/database"
	"github.com/maltedev/ph-ai-tracker/internal/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *database.Store) {
	t.Helper()
	store, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema(context.Background()))

	server := httptest.NewServer(NewRouter(NewHandlers(store)))
	t.Cleanup(server.Close)
	return server, store
}

func seedRun(t *testing.T, store *database.Store, names ...string) int64 {
	t.Helper()
	products := make([]models.Product, 0, len(names))
	for i, name := range names {
		p, err := models.NewProduct(name,
			models.WithVotes((i+1)*100),
			models.WithURL("https://ph.com/products/"+name),
		)
		require.NoError(t, err)
		products = append(products, p)
	}
	runID, err := store.SaveResult(context.Background(),
		models.Success(products, "api", "ai", 10), "")
	require.NoError(t, err)
	return runID
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	server, store := newTestServer(t)
	seedRun(t, store, "cursor")

	var body map[string]any
	status := getJSON(t, server.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["products"])
	assert.Equal(t, float64(1), body["snapshots"])
}

func TestListProducts(t *testing.T) {
	server, store := newTestServer(t)
	seedRun(t, store, "briefly", "cursor")

	var body struct {
		Count    int                      `json:"count"`
		Products []database.StoredProduct `json:"products"`
	}
	status := getJSON(t, server.URL+"/api/v1/products", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "cursor", body.Products[0].Name, "highest votes first")
}

func TestListProductsLimit(t *testing.T) {
	server, store := newTestServer(t)
	seedRun(t, store, "a", "b", "c")

	var body struct {
		Count int `json:"count"`
	}
	getJSON(t, server.URL+"/api/v1/products?limit=2", &body)
	assert.Equal(t, 2, body.Count)

	// A junk limit falls back to the default instead of erroring.
	getJSON(t, server.URL+"/api/v1/products?limit=bogus", &body)
	assert.Equal(t, 3, body.Count)
}

func TestGetProductSnapshots(t *testing.T) {
	server, store := newTestServer(t)
	seedRun(t, store, "cursor")
	seedRun(t, store, "cursor")

	products, err := store.LatestProducts(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, products, 1)

	var body struct {
		Count     int                 `json:"count"`
		Snapshots []database.Snapshot `json:"snapshots"`
	}
	status := getJSON(t, fmt.Sprintf("%s/api/v1/products/%d/snapshots", server.URL, products[0].ID), &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Count)
}

func TestGetProductSnapshotsErrors(t *testing.T) {
	server, _ := newTestServer(t)

	var body map[string]any
	status := getJSON(t, server.URL+"/api/v1/products/abc/snapshots", &body)
	assert.Equal(t, http.StatusBadRequest, status)

	status = getJSON(t, server.URL+"/api/v1/products/9999/snapshots", &body)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListRuns(t *testing.T) {
	server, store := newTestServer(t)
	first := seedRun(t, store, "cursor")
	second := seedRun(t, store, "briefly")

	var body struct {
		Count int `json:"count"`
		Runs  []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"runs"`
	}
	status := getJSON(t, server.URL+"/api/v1/runs", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, second, body.Runs[0].ID, "newest first")
	assert.Equal(t, first, body.Runs[1].ID)
	assert.Equal(t, "success", body.Runs[0].Status)
}
