// Package dedup filters out postings already persisted or already seen
// earlier in the same run.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"jobscout/internal/pipeline"
)

// Index holds the fingerprint sets consulted before a posting is accepted.
// The store snapshot is loaded once per run and never persisted on its
// own; the in-run seen set is guarded because fetch results may be merged
// from concurrent source goroutines.
type Index struct {
	mu       sync.Mutex
	existing map[string]struct{}
	seen     map[string]struct{}
}

// Load builds an Index from the store's current rows. Called once, before
// any fetch begins, so the snapshot is stable for the whole run.
func Load(ctx context.Context, store pipeline.Store) (*Index, error) {
	rows, err := store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing fingerprints: %w", err)
	}
	existing := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		fp := row.Fingerprint
		if fp == "" {
			// Rows predating fingerprint tracking fall back to URL identity.
			fp = pipeline.Fingerprint(row.Title, row.Company, row.ApplyURL)
		}
		existing[fp] = struct{}{}
	}
	return &Index{
		existing: existing,
		seen:     make(map[string]struct{}),
	}, nil
}

// NewIndex builds an empty Index. Used by tests and dry runs.
func NewIndex() *Index {
	return &Index{
		existing: make(map[string]struct{}),
		seen:     make(map[string]struct{}),
	}
}

// Accept reports whether the posting is new to both the store snapshot and
// this run, recording its fingerprint as seen when it is. Two sources
// racing on the same fingerprint admit exactly one.
func (i *Index) Accept(p pipeline.Posting) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.existing[p.Fingerprint]; ok {
		return false
	}
	if _, ok := i.seen[p.Fingerprint]; ok {
		return false
	}
	i.seen[p.Fingerprint] = struct{}{}
	return true
}

// KnownCount returns how many fingerprints the store snapshot held.
func (i *Index) KnownCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.existing)
}
