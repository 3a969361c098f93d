package search

import (
	"strings"
	"unicode/utf8"
)

// MinTitleLen is the shortest title fragment the movie database accepts.
const MinTitleLen = 3

// Filters holds the optional per-dimension filter tokens. Tokens within one dimension are
// alternatives; dimensions are combined with AND. An empty dimension matches everything.
type Filters struct {
	Genre    []string `json:"genre,omitempty"`
	Year     []string `json:"year,omitempty"`
	Type     []string `json:"type,omitempty"`
	Director []string `json:"director,omitempty"`
	Cast     []string `json:"cast,omitempty"`
}

// Empty reports whether no dimension carries a token.
func (f Filters) Empty() bool {
	return len(f.Genre) == 0 && len(f.Year) == 0 && len(f.Type) == 0 &&
		len(f.Director) == 0 && len(f.Cast) == 0
}

// Query is one user-initiated search: either a title fragment or a free-text prompt.
type Query struct {
	Title   string  `json:"title"`
	Prompt  string  `json:"prompt"`
	Filters Filters `json:"filters"`
}

// Normalized returns q with surrounding whitespace removed from Title and Prompt.
func (q Query) Normalized() Query {
	q.Title = strings.TrimSpace(q.Title)
	q.Prompt = strings.TrimSpace(q.Prompt)
	return q
}

// Validate rejects queries that must never reach a collaborator.
func (q Query) Validate() error {
	q = q.Normalized()
	switch {
	case q.Title != "" && q.Prompt != "":
		return &Error{Kind: KindAmbiguousInput, Err: ErrAmbiguousInput}
	case q.Prompt == "" && utf8.RuneCountInString(q.Title) < MinTitleLen:
		return &Error{Kind: KindInsufficientInput, Err: ErrInsufficientInput}
	}
	return nil
}

// ParseFilterList splits a comma-separated filter input into lowercase tokens,
// dropping blanks.
func ParseFilterList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
