package provider

import (
	"context"
	"log/slog"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

const missingPrimaryMsg = "no API provider configured: the auto strategy will " +
	"serve scraper-only results, which are slower and less complete. Set " +
	"PRODUCTHUNT_TOKEN to enable the API path."

// Fallback composes a primary and a secondary provider behind a single
// Provider. Fetch tries the primary first and falls through to the secondary
// only on a known provider error; anything else propagates unchanged so a
// code bug is never silently reclassified as "source unavailable".
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    *slog.Logger
}

// NewFallback builds the combinator. A nil primary is allowed but warned
// about once at construction, before any network call is made.
func NewFallback(primary, secondary Provider) *Fallback {
	logger := slog.Default().With("component", "fallback_provider")
	if primary == nil {
		logger.Warn(missingPrimaryMsg)
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) SourceName() string { return "auto" }

func (f *Fallback) Fetch(ctx context.Context, searchTerm string, limit int) ([]models.Product, error) {
	if f.primary != nil {
		products, err := f.primary.Fetch(ctx, searchTerm, limit)
		if err == nil {
			return products, nil
		}
		if !IsKnown(err) {
			return nil, err
		}
		f.logger.Warn("primary provider failed, falling back",
			"primary", f.primary.SourceName(), "error", err)
	}
	return f.secondary.Fetch(ctx, searchTerm, limit)
}

func (f *Fallback) Close() error {
	var firstErr error
	if f.primary != nil {
		firstErr = f.primary.Close()
	}
	if err := f.secondary.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// NoToken stands in for the API provider when the api strategy is requested
// without a token. Fetch fails immediately with an APIError, which the
// tracker maps to a clean failure result.
type NoToken struct{}

func (NoToken) SourceName() string { return "api" }

func (NoToken) Fetch(ctx context.Context, searchTerm string, limit int) ([]models.Product, error) {
	return nil, &APIError{Msg: "missing API token"}
}

func (NoToken) Close() error { return nil }
