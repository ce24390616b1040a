// Package scraper implements the best-effort HTML provider for Product Hunt.
//
// Extraction is a cascade of three independently testable strategies: the
// __NEXT_DATA__ JSON blob, an anchor-tag DOM fallback that activates only
// when the blob yields nothing, and per-product page enrichment. The
// coordinator here wires them together and applies the keyword filter.
//
// Only network-layer failures on the listing-page fetch surface as errors
// (provider.ScrapeError, transient). Parse-time anomalies degrade to empty
// results with a logged diagnostic so operators can spot layout changes in
// the log stream.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/maltedev/ph-ai-tracker/internal/filter"
	"github.com/maltedev/ph-ai-tracker/internal/models"
	"github.com/maltedev/ph-ai-tracker/internal/provider"
	"github.com/maltedev/ph-ai-tracker/internal/ratelimit"
)

const (
	DefaultBaseURL = "https://www.producthunt.com"
	DefaultAIPath  = "/topics/artificial-intelligence"
	DefaultTimeout = 10 * time.Second

	// Enrichment fetches one extra page per product, so it is capped.
	DefaultMaxEnrich = 10

	userAgent = "ph-ai-tracker/1.0 (+https://github.com/maltedev/ph-ai-tracker)"
)

// Config holds scraper settings. Zero values fall back to the defaults.
type Config struct {
	BaseURL        string
	AIPath         string
	Timeout        time.Duration
	EnrichProducts bool
	MaxEnrich      int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Scraper coordinates the extraction cascade. It satisfies provider.Provider.
type Scraper struct {
	cfg      Config
	client   *http.Client
	nextData *NextDataExtractor
	anchors  *AnchorExtractor
	enricher *Enricher
	logger   *slog.Logger
}

func New(cfg Config) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AIPath == "" {
		cfg.AIPath = DefaultAIPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxEnrich == 0 {
		cfg.MaxEnrich = DefaultMaxEnrich
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Scraper{
		cfg:      cfg,
		client:   client,
		nextData: NewNextDataExtractor(),
		anchors:  NewAnchorExtractor(cfg.BaseURL),
		enricher: NewEnricher(client, ratelimit.NewPacer(200*time.Millisecond, 500*time.Millisecond)),
		logger:   slog.Default().With("component", "scraper"),
	}
}

func (s *Scraper) SourceName() string { return "scraper" }

func (s *Scraper) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Fetch scrapes the AI topic page and returns up to limit matching products.
func (s *Scraper) Fetch(ctx context.Context, searchTerm string, limit int) ([]models.Product, error) {
	if limit < 1 {
		limit = 1
	}
	html, err := s.fetchHTML(ctx)
	if err != nil {
		return nil, err
	}
	products := s.extract(html)
	products = applyFilter(products, searchTerm)
	if len(products) > limit {
		products = products[:limit]
	}
	products = s.maybeEnrich(ctx, products)
	sortByVotes(products)
	return products, nil
}

func (s *Scraper) fetchHTML(ctx context.Context) (string, error) {
	url := strings.TrimSuffix(s.cfg.BaseURL, "/") + s.cfg.AIPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &provider.ScrapeError{Msg: "scraper request failed: " + err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", &provider.ScrapeError{Msg: fmt.Sprintf("scraper HTTP error (status=%d)", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.ScrapeError{Msg: "scraper read failed: " + err.Error()}
	}
	return string(body), nil
}

// extract runs the cascade: __NEXT_DATA__ first, DOM anchors only when the
// blob yields nothing. Both extractors handle their own parse anomalies.
func (s *Scraper) extract(html string) []models.Product {
	products := s.nextData.Extract(html)
	if len(products) == 0 {
		products = s.anchors.Extract(html)
	}
	return products
}

// applyFilter narrows products by the search term, but only when the page
// carried rich text to match against. Anchor-only results have just a name
// and URL, so filtering them on a term would discard everything.
func applyFilter(products []models.Product, searchTerm string) []models.Product {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" || !anyRich(products) {
		return products
	}
	strict := filter.IsStrictTerm(term)
	out := products[:0]
	for _, p := range products {
		if strict && filter.MatchesStrict(p.SearchableText(), p.Topics) {
			out = append(out, p)
		}
		if !strict && filter.MatchesLoose(p.SearchableText(), term) {
			out = append(out, p)
		}
	}
	return out
}

func anyRich(products []models.Product) bool {
	for _, p := range products {
		if p.Tagline != "" || p.Description != "" || len(p.Topics) > 0 {
			return true
		}
	}
	return false
}

// maybeEnrich upgrades up to MaxEnrich products that are missing a
// description or vote count. Skipped entirely when nothing needs it.
func (s *Scraper) maybeEnrich(ctx context.Context, products []models.Product) []models.Product {
	if !s.cfg.EnrichProducts || !needsEnrichment(products) {
		return products
	}
	budget := s.cfg.MaxEnrich
	if budget < 0 {
		budget = 0
	}
	out := make([]models.Product, len(products))
	for i, p := range products {
		if i < budget {
			out[i] = s.enricher.Enrich(ctx, p)
		} else {
			out[i] = p
		}
	}
	return out
}

func needsEnrichment(products []models.Product) bool {
	for _, p := range products {
		if p.URL != "" && (p.Description == "" || p.VotesCount == 0) {
			return true
		}
	}
	return false
}

// sortByVotes orders by votes descending with name ascending on ties. A page
// where every product has zero votes keeps its original order.
func sortByVotes(products []models.Product) {
	for _, p := range products {
		if p.VotesCount > 0 {
			sort.SliceStable(products, func(i, j int) bool {
				if products[i].VotesCount != products[j].VotesCount {
					return products[i].VotesCount > products[j].VotesCount
				}
				return products[i].Name < products[j].Name
			})
			return
		}
	}
}
