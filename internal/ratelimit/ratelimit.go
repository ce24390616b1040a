// Package ratelimit parses Product Hunt rate-limit response headers and
// provides a polite pacing limiter for page fetches.
package ratelimit

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Info holds the parsed values of the rate-limit response headers. Each
// field is nil when the header is absent or non-numeric; parsing never
// fails.
type Info struct {
	Limit        *int
	Remaining    *int
	ResetSeconds *int
	RetryAfter   *int
}

// Parse extracts rate-limit fields from headers. X-Rate-Limit-Reset takes
// precedence over Retry-After as the effective retry delay; that is the
// documented behavior of the Product Hunt API.
func Parse(headers http.Header) Info {
	reset := headerInt(headers, "X-Rate-Limit-Reset")
	retry := headerInt(headers, "Retry-After")
	effective := retry
	if reset != nil {
		effective = reset
	}
	return Info{
		Limit:        headerInt(headers, "X-Rate-Limit-Limit"),
		Remaining:    headerInt(headers, "X-Rate-Limit-Remaining"),
		ResetSeconds: reset,
		RetryAfter:   effective,
	}
}

func headerInt(headers http.Header, key string) *int {
	val := headers.Get(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return nil
	}
	return &n
}

// Pacer spaces consecutive requests by a jittered delay. The enricher uses
// one so per-product page fetches do not hammer the site.
type Pacer struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{minDelay: minDelay, maxDelay: maxDelay}
}

// Wait blocks until the pacing delay since the last action has elapsed, or
// ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.lastAction)
	delay := p.calculateDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	p.lastAction = time.Now()
	return nil
}

func (p *Pacer) calculateDelay() time.Duration {
	if p.minDelay >= p.maxDelay {
		return p.minDelay
	}
	jitter := time.Duration(rand.Int63n(int64(p.maxDelay - p.minDelay)))
	return p.minDelay + jitter
}
