package tracker

import (
	"fmt"
	"strings"

	"github.com/maltedev/ph-ai-tracker/internal/api"
	"github.com/maltedev/ph-ai-tracker/internal/provider"
	"github.com/maltedev/ph-ai-tracker/internal/scraper"
)

// ConfigError marks an invalid configuration value, e.g. an unknown
// strategy. The factory fails fast on these instead of silently defaulting.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// FactoryOptions carries everything needed to construct a provider.
type FactoryOptions struct {
	Strategy   string // api | scraper | auto
	APIToken   string
	APIOpts    api.Options
	ScraperCfg scraper.Config
}

// BuildProvider is the composition root for providers. Callers receive one
// already-composed Provider and never branch on the strategy name again;
// adding a source means adding a Provider here, not a conditional elsewhere.
func BuildProvider(opts FactoryOptions) (provider.Provider, error) {
	strategy := strings.ToLower(strings.TrimSpace(opts.Strategy))
	hasToken := strings.TrimSpace(opts.APIToken) != ""

	newAPI := func() (provider.Provider, error) {
		return api.NewClient(opts.APIToken, opts.APIOpts)
	}

	switch strategy {
	case "scraper":
		return scraper.New(opts.ScraperCfg), nil
	case "api":
		if !hasToken {
			return provider.NoToken{}, nil
		}
		return newAPI()
	case "auto":
		var primary provider.Provider
		if hasToken {
			client, err := newAPI()
			if err != nil {
				return nil, err
			}
			primary = client
		}
		return provider.NewFallback(primary, scraper.New(opts.ScraperCfg)), nil
	default:
		return nil, &ConfigError{Msg: fmt.Sprintf("unknown strategy %q", opts.Strategy)}
	}
}
