package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

type stubProvider struct {
	name     string
	products []models.Product
	err      error
	calls    int
	closed   bool
}

func (s *stubProvider) SourceName() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, searchTerm string, limit int) ([]models.Product, error) {
	s.calls++
	return s.products, s.err
}

func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func mustProduct(t *testing.T, name string) models.Product {
	t.Helper()
	p, err := models.NewProduct(name)
	require.NoError(t, err)
	return p
}

func TestFallbackUsesPrimaryOnSuccess(t *testing.T) {
	primary := &stubProvider{name: "api", products: []models.Product{mustProduct(t, "Cursor")}}
	secondary := &stubProvider{name: "scraper"}
	f := NewFallback(primary, secondary)

	products, err := f.Fetch(context.Background(), "ai", 5)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackFallsThroughOnKnownError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rate limit", &RateLimitError{}},
		{"api error", &APIError{Msg: "unauthorized", Status: 401}},
		{"scrape error", &ScrapeError{Msg: "timeout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &stubProvider{name: "api", err: tt.err}
			secondary := &stubProvider{name: "scraper", products: []models.Product{mustProduct(t, "Cursor")}}
			f := NewFallback(primary, secondary)

			products, err := f.Fetch(context.Background(), "ai", 5)
			require.NoError(t, err)
			assert.Len(t, products, 1)
			assert.Equal(t, 1, secondary.calls)
		})
	}
}

func TestFallbackPropagatesUnknownErrors(t *testing.T) {
	boom := errors.New("nil pointer somewhere")
	primary := &stubProvider{name: "api", err: boom}
	secondary := &stubProvider{name: "scraper"}
	f := NewFallback(primary, secondary)

	_, err := f.Fetch(context.Background(), "ai", 5)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, secondary.calls, "secondary must not run on a bug")
}

func TestFallbackNilPrimaryGoesStraightToSecondary(t *testing.T) {
	secondary := &stubProvider{name: "scraper", products: []models.Product{mustProduct(t, "Cursor")}}
	f := NewFallback(nil, secondary)

	products, err := f.Fetch(context.Background(), "ai", 5)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestFallbackCloseClosesBoth(t *testing.T) {
	primary := &stubProvider{name: "api"}
	secondary := &stubProvider{name: "scraper"}
	f := NewFallback(primary, secondary)

	require.NoError(t, f.Close())
	assert.True(t, primary.closed)
	assert.True(t, secondary.closed)
}

func TestNoTokenFailsWithAPIError(t *testing.T) {
	_, err := NoToken{}.Fetch(context.Background(), "ai", 5)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, IsTransient(err))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsKnown(&RateLimitError{}))
	assert.True(t, IsKnown(&APIError{Msg: "x"}))
	assert.True(t, IsKnown(&ScrapeError{Msg: "x"}))
	assert.False(t, IsKnown(errors.New("plain")))

	assert.True(t, IsTransient(&RateLimitError{}))
	assert.True(t, IsTransient(&ScrapeError{Msg: "x"}))
	assert.False(t, IsTransient(&APIError{Msg: "x"}))
}

func TestRateLimitErrorRetryAfter(t *testing.T) {
	var e RateLimitError
	assert.Equal(t, 0, e.RetryAfterSeconds())
	assert.Equal(t, "rate limit hit", e.Error())

	secs := 120
	e.Info.RetryAfter = &secs
	assert.Equal(t, 120, e.RetryAfterSeconds())
	assert.Equal(t, "rate limit hit, retry after 120s", e.Error())
}
