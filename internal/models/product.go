package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrBlankName is returned by NewProduct when the name is empty or
// whitespace-only. Name validation happens here and nowhere else.
var ErrBlankName = errors.New("product name must be non-empty")

// Product is a single Product Hunt listing observed during one run.
// Products are value types: enrichment and tagging produce copies via
// WithTags and WithEnrichment, never in-place mutation.
type Product struct {
	Name        string     `json:"name"`
	Tagline     string     `json:"tagline,omitempty"`
	Description string     `json:"description,omitempty"`
	VotesCount  int        `json:"votes_count"`
	URL         string     `json:"url,omitempty"`
	Topics      []string   `json:"topics,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
}

// ProductOption configures optional Product fields at construction time.
type ProductOption func(*Product)

func WithTagline(s string) ProductOption     { return func(p *Product) { p.Tagline = s } }
func WithDescription(s string) ProductOption { return func(p *Product) { p.Description = s } }
func WithVotes(n int) ProductOption          { return func(p *Product) { p.VotesCount = n } }
func WithURL(s string) ProductOption         { return func(p *Product) { p.URL = s } }

func WithTopics(topics []string) ProductOption {
	return func(p *Product) { p.Topics = topics }
}

func WithPostedAt(t time.Time) ProductOption {
	return func(p *Product) { p.PostedAt = &t }
}

// NewProduct builds a Product, rejecting blank names and normalizing
// topics and tags (lowercased, deduplicated). Negative vote counts clamp
// to zero.
func NewProduct(name string, opts ...ProductOption) (Product, error) {
	if strings.TrimSpace(name) == "" {
		return Product{}, ErrBlankName
	}
	p := Product{Name: strings.TrimSpace(name)}
	for _, opt := range opts {
		opt(&p)
	}
	if p.VotesCount < 0 {
		p.VotesCount = 0
	}
	p.Topics = normalizeSet(p.Topics)
	p.Tags = normalizeSet(p.Tags)
	return p, nil
}

// WithTags returns a copy of p carrying the given tags. The receiver is
// unchanged.
func (p Product) WithTags(tags []string) Product {
	out := p
	out.Tags = normalizeSet(tags)
	return out
}

// WithEnrichment returns a copy of p with description and votes replaced.
func (p Product) WithEnrichment(description string, votes int) Product {
	out := p
	out.Description = description
	out.VotesCount = votes
	return out
}

// SearchableText is the lowercase concatenation of all human-readable text
// fields. Computed on access, not stored.
func (p Product) SearchableText() string {
	parts := []string{p.Name, p.Tagline, p.Description, strings.Join(p.Topics, " ")}
	return strings.ToLower(strings.Join(parts, " "))
}

// CoerceVotes parses a raw vote count, returning 0 for anything that does
// not look like a non-negative integer.
func CoerceVotes(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
