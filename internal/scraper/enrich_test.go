package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

func enricherProduct(t *testing.T, url string) models.Product {
	t.Helper()
	p, err := models.NewProduct("Cursor", models.WithURL(url))
	require.NoError(t, err)
	return p
}

func TestEnrichFillsDescriptionAndVotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:description" content="An AI-first code editor">
		</head><body>
			<script>{"votesCount": 120, "related": [{"votesCount": 430}, {"votesCount": 88}]}</script>
		</body></html>`)
	}))
	defer server.Close()

	e := NewEnricher(server.Client(), nil)
	enriched := e.Enrich(context.Background(), enricherProduct(t, server.URL))

	assert.Equal(t, "An AI-first code editor", enriched.Description)
	assert.Equal(t, 430, enriched.VotesCount, "the largest embedded count wins")
}

func TestEnrichFallsBackToStandardDescriptionMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta name="description" content="Plain meta description"></head></html>`)
	}))
	defer server.Close()

	e := NewEnricher(server.Client(), nil)
	enriched := e.Enrich(context.Background(), enricherProduct(t, server.URL))
	assert.Equal(t, "Plain meta description", enriched.Description)
}

func TestEnrichKeepsExistingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:description" content="Other text"></head>
			<body><script>{"votesCount": 999}</script></body></html>`)
	}))
	defer server.Close()

	p, err := models.NewProduct("Cursor",
		models.WithURL(server.URL),
		models.WithDescription("Original description"),
		models.WithVotes(42),
	)
	require.NoError(t, err)

	e := NewEnricher(server.Client(), nil)
	enriched := e.Enrich(context.Background(), p)

	assert.Equal(t, "Original description", enriched.Description)
	assert.Equal(t, 42, enriched.VotesCount)
}

func TestEnrichFailuresReturnOriginal(t *testing.T) {
	t.Run("no URL", func(t *testing.T) {
		p, err := models.NewProduct("Cursor")
		require.NoError(t, err)
		e := NewEnricher(http.DefaultClient, nil)
		assert.Equal(t, p, e.Enrich(context.Background(), p))
	})

	t.Run("HTTP error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		p := enricherProduct(t, server.URL)
		e := NewEnricher(server.Client(), nil)
		assert.Equal(t, p, e.Enrich(context.Background(), p))
	})

	t.Run("network failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		p := enricherProduct(t, server.URL)
		e := NewEnricher(http.DefaultClient, nil)
		assert.Equal(t, p, e.Enrich(context.Background(), p))
	})
}

func TestMaxEmbeddedVotes(t *testing.T) {
	assert.Equal(t, 0, maxEmbeddedVotes("<html>no votes here</html>"))
	assert.Equal(t, 7, maxEmbeddedVotes(`{"votesCount": 7}`))
	assert.Equal(t, 50, maxEmbeddedVotes(`{"votesCount":50} {"votesCount" : 3}`))
}
