package models

import (
	"net/url"
	"strings"
)

// CanonicalKey derives the stable deduplication key for a product. It is the
// single authority for deciding whether two observed products are the same:
// no other comparison logic exists anywhere in the repo.
//
// When the product has an absolute http(s) URL the key is
// "url:" + lowercase(scheme://host/path) with query string, fragment, and
// trailing slash stripped. Otherwise it falls back to
// "name:" + normalized name (trimmed, inner whitespace collapsed, lowercased,
// surrounding punctuation stripped).
//
// The function is idempotent: deriving a key from already-canonical input
// yields the same string.
func CanonicalKey(p Product) string {
	if key, ok := urlKey(p.URL); ok {
		return key
	}
	return "name:" + normalizeName(p.Name)
}

func urlKey(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return "url:" + strings.ToLower(scheme+"://"+u.Host+path), true
}

func normalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = strings.ToLower(name)
	return strings.Trim(name, ".,;:!?'\"()[]{}- ")
}
