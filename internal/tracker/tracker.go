// Package tracker composes a provider and turns its outcomes into
// structured fetch results.
package tracker

import (
	"context"
	"log/slog"

	"github.com/maltedev/ph-ai-tracker/internal/models"
	"github.com/maltedev/ph-ai-tracker/internal/provider"
)

// Tracker wraps one already-composed Provider. Known provider failures are
// captured into the FetchResult so callers always get a structured outcome;
// anything else is a programming bug and is returned as an error instead of
// being swallowed.
type Tracker struct {
	provider provider.Provider
	logger   *slog.Logger
}

func New(p provider.Provider) *Tracker {
	return &Tracker{
		provider: p,
		logger:   slog.Default().With("component", "tracker"),
	}
}

// GetProducts runs one fetch. The returned error is non-nil only for
// unexpected failures; source outages land in the result's Error field.
func (t *Tracker) GetProducts(ctx context.Context, searchTerm string, limit int) (models.FetchResult, error) {
	source := t.provider.SourceName()
	products, err := t.provider.Fetch(ctx, searchTerm, limit)
	if err == nil {
		t.logger.Info("fetch succeeded", "source", source, "count", len(products))
		return models.Success(products, source, searchTerm, limit), nil
	}
	if provider.IsKnown(err) {
		t.logger.Warn("fetch failed", "source", source, "error", err,
			"transient", provider.IsTransient(err))
		return models.Failure(source, err.Error(), provider.IsTransient(err), searchTerm, limit), nil
	}
	return models.FetchResult{}, err
}

// Close releases the underlying provider.
func (t *Tracker) Close() error {
	return t.provider.Close()
}
