// Package filter decides whether a product is relevant to a search term.
//
// Two separate entry points exist on purpose: MatchesStrict applies a
// word-boundary AI-relevance check, MatchesLoose a plain substring check.
// Callers pick one based on IsStrictTerm; the filter itself never branches
// on a mode flag.
package filter

import (
	"regexp"
	"strings"
)

const strictTopic = "artificial intelligence"

var strictTerms = map[string]bool{
	"ai":                      true,
	"artificial intelligence": true,
}

// Word-boundary match prevents substring false positives: "paid" contains
// "ai" but is not an AI product.
var aiPattern = regexp.MustCompile(`(?i)\bartificial\s+intelligence\b|\b(ai|ml|llm|gpt)\b`)

// IsStrictTerm reports whether term warrants strict AI-only filtering.
// An empty term means "no filtering", never "strictest filtering", so it
// returns false.
func IsStrictTerm(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	return strictTerms[term]
}

// MatchesStrict reports whether text or topics carry a genuine AI signal.
func MatchesStrict(text string, topics []string) bool {
	for _, t := range topics {
		if strings.EqualFold(strings.TrimSpace(t), strictTopic) {
			return true
		}
	}
	return aiPattern.MatchString(text)
}

// MatchesLoose reports whether the lowercased term appears as a substring of
// the lowercased text.
func MatchesLoose(text, term string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}
