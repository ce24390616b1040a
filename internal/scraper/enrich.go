package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/ph-ai-tracker/internal/models"
	"github.com/maltedev/ph-ai-tracker/internal/ratelimit"
)

var votesCountRe = regexp.MustCompile(`"votesCount"\s*:\s*(\d+)`)

// Enricher fills in missing description and vote counts by fetching a
// product's own page. OpenGraph meta tags are preferred because they are
// server-set and survive layout changes.
//
// Enrichment is strictly best-effort: on a missing URL, a network failure,
// or any 4xx/5xx response the original product is returned unchanged. A
// known-good product is never discarded or corrupted by a failed upgrade.
type Enricher struct {
	client *http.Client
	pacer  *ratelimit.Pacer
	logger *slog.Logger
}

func NewEnricher(client *http.Client, pacer *ratelimit.Pacer) *Enricher {
	return &Enricher{
		client: client,
		pacer:  pacer,
		logger: slog.Default().With("component", "enricher"),
	}
}

func (e *Enricher) Enrich(ctx context.Context, p models.Product) models.Product {
	if p.URL == "" {
		return p
	}
	if e.pacer != nil {
		if err := e.pacer.Wait(ctx); err != nil {
			return p
		}
	}
	body, ok := e.fetchPage(ctx, p.URL)
	if !ok {
		return p
	}

	description := p.Description
	if description == "" {
		description = ogDescription(body)
	}
	votes := p.VotesCount
	if votes == 0 {
		votes = maxEmbeddedVotes(body)
	}
	if description == p.Description && votes == p.VotesCount {
		return p
	}
	return p.WithEnrichment(description, votes)
}

func (e *Enricher) fetchPage(ctx context.Context, url string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("enrichment request failed", "url", url, "error", err)
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		e.logger.Warn("enrichment page returned error status", "url", url, "status", resp.StatusCode)
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(body), true
}

// ogDescription returns the first non-empty og:description or standard
// description meta content.
func ogDescription(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{`meta[property="og:description"]`, `meta[name="description"]`} {
		content, _ := doc.Find(sel).First().Attr("content")
		if strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// maxEmbeddedVotes returns the largest votesCount value embedded in the page
// JSON, or 0. The page repeats the count for related products; the product's
// own count is the maximum on its canonical page.
func maxEmbeddedVotes(html string) int {
	best := 0
	for _, m := range votesCountRe.FindAllStringSubmatch(html, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	return best
}
