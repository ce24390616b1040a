// Package provider defines the capability interface every product source
// implements, the domain error taxonomy, and the fallback combinator that
// composes two sources behind a single provider.
package provider

import (
	"context"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

// Provider fetches products from one source. Implementations return one of
// the typed errors in this package on known failures; anything else escaping
// Fetch is treated as a programming bug and propagates unmuted.
type Provider interface {
	Fetch(ctx context.Context, searchTerm string, limit int) ([]models.Product, error)
	SourceName() string
	Close() error
}
