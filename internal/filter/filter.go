// Package filter implements the relevance predicate applied to canonical
// postings before deduplication.
package filter

import (
	"strings"

	"jobscout/internal/pipeline"
)

// Criteria holds the configured interest terms. All matching is
// case-insensitive substring matching on the posting's display fields.
type Criteria struct {
	Keywords        []string
	ExcludeKeywords []string
	Location        string
}

// Filter is a pure predicate over postings; it keeps no state between calls.
type Filter struct {
	keywords []string
	excludes []string
	location string
}

// New builds a Filter from criteria, pre-lowering the terms once.
func New(c Criteria) *Filter {
	return &Filter{
		keywords: lowerAll(c.Keywords),
		excludes: lowerAll(c.ExcludeKeywords),
		location: strings.ToLower(strings.TrimSpace(c.Location)),
	}
}

// Matches reports whether the posting passes the configured criteria.
// Exclude keywords win over include keywords; an empty keyword list
// accepts every title; an empty location accepts every location.
func (f *Filter) Matches(p pipeline.Posting) bool {
	title := strings.ToLower(p.Title)

	for _, ex := range f.excludes {
		if ex != "" && strings.Contains(title, ex) {
			return false
		}
	}

	if len(f.keywords) > 0 {
		hit := false
		for _, kw := range f.keywords {
			if kw != "" && strings.Contains(title, kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	if f.location != "" && !strings.Contains(strings.ToLower(p.Location), f.location) {
		return false
	}
	return true
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
