package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

// Canonical product pages have exactly two path segments, e.g.
// /products/<slug>. Deeper links are navigation or category pages.
const productPathDepth = 2

// AnchorExtractor is the DOM fallback: when the __NEXT_DATA__ blob yields
// nothing, it scans anchor tags for canonical product links. Only paths of
// the shape /products/<slug> or /posts/<slug> are accepted; mailto: and
// tel: links are skipped, and relative hrefs are resolved against the base
// URL.
type AnchorExtractor struct {
	baseURL string
	logger  *slog.Logger
}

func NewAnchorExtractor(baseURL string) *AnchorExtractor {
	return &AnchorExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  slog.Default().With("component", "anchor_extractor"),
	}
}

func (e *AnchorExtractor) Extract(html string) []models.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("failed to parse HTML", "error", err)
		return nil
	}

	var found []models.Product
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if p, ok := e.anchorToProduct(a); ok {
			found = append(found, p)
		}
	})
	unique := dedupByNameURL(found)
	if len(unique) == 0 {
		e.logger.Warn("DOM fallback found no product anchors, possible layout change",
			"snippet", snippet(html))
	}
	return unique
}

func (e *AnchorExtractor) anchorToProduct(a *goquery.Selection) (models.Product, bool) {
	href, _ := a.Attr("href")
	text := strings.TrimSpace(a.Text())
	if href == "" || text == "" {
		return models.Product{}, false
	}
	if !strings.Contains(href, "/products/") && !strings.Contains(href, "/posts/") {
		return models.Product{}, false
	}
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
		return models.Product{}, false
	}

	full := href
	if strings.HasPrefix(href, "/") {
		full = e.baseURL + href
	}
	parsed, err := url.Parse(full)
	if err != nil {
		return models.Product{}, false
	}
	parts := splitPath(parsed.Path)
	if len(parts) < productPathDepth {
		return models.Product{}, false
	}
	if (parts[0] == "products" || parts[0] == "posts") && len(parts) != productPathDepth {
		return models.Product{}, false
	}

	p, err := models.NewProduct(text, models.WithURL(full))
	if err != nil {
		return models.Product{}, false
	}
	return p, true
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
