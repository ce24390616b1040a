package models

import "time"

// FetchResult is the outcome of one provider fetch. Error == "" is the sole
// success signal; Products may be non-empty even when Error is set, which
// represents a partial result the scheduler records with status "partial".
type FetchResult struct {
	Products   []Product `json:"products"`
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
	Error      string    `json:"error,omitempty"`
	Transient  bool      `json:"transient,omitempty"`
	SearchTerm string    `json:"search_term"`
	Limit      int       `json:"limit"`
}

// Success builds a FetchResult for a completed fetch.
func Success(products []Product, source, searchTerm string, limit int) FetchResult {
	return FetchResult{
		Products:   products,
		Source:     source,
		FetchedAt:  time.Now().UTC(),
		SearchTerm: searchTerm,
		Limit:      limit,
	}
}

// Failure builds a FetchResult for a failed fetch. transient hints the
// scheduler that a retry may succeed.
func Failure(source, errText string, transient bool, searchTerm string, limit int) FetchResult {
	return FetchResult{
		Source:     source,
		FetchedAt:  time.Now().UTC(),
		Error:      errText,
		Transient:  transient,
		SearchTerm: searchTerm,
		Limit:      limit,
	}
}

// OK reports whether the fetch completed without error.
func (r FetchResult) OK() bool { return r.Error == "" }
