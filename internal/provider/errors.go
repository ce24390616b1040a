package provider

import (
	"errors"
	"fmt"

	"github.com/maltedev/ph-ai-tracker/internal/ratelimit"
)

// RateLimitError is returned when the API answers HTTP 429. Always
// transient: waiting out the reset window and retrying is expected to
// succeed.
type RateLimitError struct {
	Info ratelimit.Info
}

func (e *RateLimitError) Error() string {
	if e.Info.RetryAfter != nil {
		return fmt.Sprintf("rate limit hit, retry after %ds", *e.Info.RetryAfter)
	}
	return "rate limit hit"
}

// RetryAfterSeconds returns the effective back-off, or 0 when unknown.
func (e *RateLimitError) RetryAfterSeconds() int {
	if e.Info.RetryAfter == nil {
		return 0
	}
	return *e.Info.RetryAfter
}

// APIError covers auth failures, schema mismatches, and malformed responses
// from the GraphQL API. Never transient: retrying a 401 or a broken schema
// will not fix it.
type APIError struct {
	Msg    string
	Status int
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status=%d)", e.Msg, e.Status)
	}
	return e.Msg
}

// ScrapeError covers network-layer scraping failures (timeout, HTTP
// 4xx/5xx on the page fetch). Always transient. Parse errors are not
// ScrapeErrors; they degrade to empty results inside the scraper.
type ScrapeError struct {
	Msg string
}

func (e *ScrapeError) Error() string { return e.Msg }

// IsKnown reports whether err is one of the provider-shaped failures. The
// fallback combinator falls through only on these; unrelated runtime errors
// propagate so bugs are not mistaken for source outages.
func IsKnown(err error) bool {
	var rl *RateLimitError
	var api *APIError
	var scrape *ScrapeError
	return errors.As(err, &rl) || errors.As(err, &api) || errors.As(err, &scrape)
}

// IsTransient reports whether retrying err is likely to succeed.
func IsTransient(err error) bool {
	var rl *RateLimitError
	var scrape *ScrapeError
	return errors.As(err, &rl) || errors.As(err, &scrape)
}
