package search

import (
	"strings"

	"github.com/Clark-Hu/movie-search/internal/domain"
)

// Match reports whether r passes every filter dimension. Matching is case-insensitive
// substring containment; a year token matches range-bearing years such as "2019–2021".
func (f Filters) Match(r domain.EnrichedResult) bool {
	return containsAny(r.Detail.Genre, f.Genre) &&
		containsAny(r.Year(), f.Year) &&
		containsAny(r.Type(), f.Type) &&
		containsAny(r.Detail.Director, f.Director) &&
		containsAny(r.Detail.Actors, f.Cast)
}

// Apply returns the results that pass f, preserving order.
func (f Filters) Apply(results []domain.EnrichedResult) []domain.EnrichedResult {
	out := make([]domain.EnrichedResult, 0, len(results))
	for _, r := range results {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsAny(field string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	field = strings.ToLower(field)
	blank := true
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		blank = false
		if strings.Contains(field, token) {
			return true
		}
	}
	return blank
}
