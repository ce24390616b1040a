package scraper

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/ph-ai-tracker/internal/models"
)

// NextDataExtractor pulls products out of the __NEXT_DATA__ JSON blob that
// Next.js embeds in a script tag on every page load. The blob mirrors the
// GraphQL response shape, so a recursive walk for product-shaped nodes is
// stable across layout changes that only touch the rendered DOM.
//
// Malformed JSON, an absent blob, and zero matching nodes all resolve to an
// empty result plus a logged warning, never an error: a broken page is not
// the caller's fault.
type NextDataExtractor struct {
	logger *slog.Logger
}

func NewNextDataExtractor() *NextDataExtractor {
	return &NextDataExtractor{logger: slog.Default().With("component", "nextdata_extractor")}
}

func (e *NextDataExtractor) Extract(html string) []models.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("failed to parse HTML", "error", err)
		return nil
	}
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		e.logger.Warn("no __NEXT_DATA__ script tag found, possible layout change",
			"snippet", snippet(html))
		return nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		e.logger.Warn("failed to parse __NEXT_DATA__ JSON", "error", err,
			"snippet", snippet(raw))
		return nil
	}

	var found []models.Product
	walk(payload, &found)
	unique := dedupByNameURL(found)
	if len(unique) == 0 {
		e.logger.Warn("no products found in __NEXT_DATA__, possible layout change",
			"snippet", snippet(html))
	}
	return unique
}

// walk recursively visits the JSON tree, collecting product candidates.
func walk(node any, found *[]models.Product) {
	switch v := node.(type) {
	case map[string]any:
		if p, ok := productFromNode(v); ok {
			*found = append(*found, p)
		}
		for _, child := range v {
			walk(child, found)
		}
	case []any:
		for _, item := range v {
			walk(item, found)
		}
	}
}

// productFromNode accepts a node when it has a non-empty name and at least
// one of tagline, description, or votesCount. Name-only nodes are usually
// navigation entries, not products.
func productFromNode(obj map[string]any) (models.Product, bool) {
	name, _ := obj["name"].(string)
	if strings.TrimSpace(name) == "" {
		return models.Product{}, false
	}
	tagline, hasTagline := obj["tagline"]
	description, hasDescription := obj["description"]
	votes, hasVotes := obj["votesCount"]
	if !hasTagline && !hasDescription && !hasVotes {
		return models.Product{}, false
	}

	opts := []models.ProductOption{
		models.WithVotes(coerceVotes(votes)),
		models.WithTopics(extractTopicNames(obj["topics"])),
	}
	if s, ok := tagline.(string); ok {
		opts = append(opts, models.WithTagline(s))
	}
	if s, ok := description.(string); ok {
		opts = append(opts, models.WithDescription(s))
	}
	if u := nodeURL(obj); u != "" {
		opts = append(opts, models.WithURL(u))
	}
	p, err := models.NewProduct(name, opts...)
	if err != nil {
		return models.Product{}, false
	}
	return p, true
}

func nodeURL(obj map[string]any) string {
	if u, ok := obj["url"].(string); ok && u != "" {
		return u
	}
	if u, ok := obj["website"].(string); ok {
		return u
	}
	return ""
}

func coerceVotes(raw any) int {
	switch v := raw.(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return int(v)
	case string:
		return models.CoerceVotes(v)
	default:
		return 0
	}
}

func extractTopicNames(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if name, ok := m["name"].(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func dedupByNameURL(products []models.Product) []models.Product {
	type key struct{ name, url string }
	seen := make(map[key]bool, len(products))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		k := key{p.Name, p.URL}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

func snippet(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max]
	}
	return s
}
