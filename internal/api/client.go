// Package api implements the Product Hunt GraphQL provider.
//
// The client queries the artificial-intelligence topic by default and
// over-fetches (limit*5, clamped to [20,50]) so that client-side keyword
// filtering still fills a page when some results are off-topic. When the
// topic-scoped query returns GraphQL errors (the schema shape has diverged)
// it retries once with the global posts query before giving up.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/maltedev/ph-ai-tracker/internal/models"
	"github.com/maltedev/ph-ai-tracker/internal/provider"
	"github.com/maltedev/ph-ai-tracker/internal/ratelimit"
)

const (
	DefaultEndpoint  = "https://api.producthunt.com/v2/api/graphql"
	DefaultTopicSlug = "artificial-intelligence"
	DefaultTimeout   = 10 * time.Second

	// Over-fetch policy: request more than asked so post-hoc filtering has
	// enough candidates.
	paginationMultiplier = 5
	minFetchSize         = 20
	maxFetchSize         = 50

	// Posts older than this are dropped when the response carries createdAt.
	recentDays = 7
)

var ErrMissingToken = errors.New("api token is required")

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	Endpoint  string
	TopicSlug string
	Order     string
	Timeout   time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is the GraphQL API provider. It satisfies provider.Provider.
type Client struct {
	token     string
	endpoint  string
	topicSlug string
	order     string
	client    *http.Client
	logger    *slog.Logger
}

// NewClient validates the token up front: an empty token would produce a 401
// on the first request and is caught early for a clearer error message.
func NewClient(token string, opts Options) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.TopicSlug == "" {
		opts.TopicSlug = DefaultTopicSlug
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		token:     token,
		endpoint:  opts.Endpoint,
		topicSlug: opts.TopicSlug,
		order:     opts.Order,
		client:    httpClient,
		logger:    slog.Default().With("component", "api_client"),
	}, nil
}

func (c *Client) SourceName() string { return "api" }

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Fetch returns up to limit products matching searchTerm, sorted by votes
// descending.
func (c *Client) Fetch(ctx context.Context, searchTerm string, limit int) ([]models.Product, error) {
	if limit < 1 {
		limit = 1
	}
	first := clamp(limit*paginationMultiplier, minFetchSize, maxFetchSize)
	qc := buildQuery(first, c.order, c.topicSlug, searchTerm)

	resp, err := c.execute(ctx, qc.payload)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 && c.topicSlug != "" {
		c.logger.Warn("topic query returned GraphQL errors, retrying global shape",
			"errors", len(resp.Errors))
		fallback := buildQuery(limit, c.order, "", qc.localFilter)
		resp, err = c.execute(ctx, fallback.payload)
		if err != nil {
			return nil, err
		}
	}
	if len(resp.Errors) > 0 {
		return nil, &provider.APIError{Msg: "GraphQL errors returned"}
	}

	products := buildProducts(resp.edges(), qc.localFilter)
	products = filterRecent(products, recentDays, time.Now().UTC())
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].VotesCount > products[j].VotesCount
	})
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (c *Client) execute(ctx context.Context, payload gqlPayload) (*gqlResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &provider.APIError{Msg: "API request failed: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &provider.RateLimitError{Info: ratelimit.Parse(resp.Header)}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &provider.APIError{Msg: "API auth failed", Status: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return nil, &provider.APIError{Msg: "API error", Status: resp.StatusCode}
	}

	var parsed gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &provider.APIError{Msg: "API returned non-JSON response"}
	}
	return &parsed, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// filterRecent drops products older than days. It only applies when at least
// one product carries a posted-at timestamp; scraper-sourced products without
// timestamps pass through untouched.
func filterRecent(products []models.Product, days int, now time.Time) []models.Product {
	anyDated := false
	for _, p := range products {
		if p.PostedAt != nil {
			anyDated = true
			break
		}
	}
	if !anyDated {
		return products
	}
	cutoff := now.AddDate(0, 0, -days)
	out := products[:0]
	for _, p := range products {
		if p.PostedAt != nil && !p.PostedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}
