// Package memory implements an in-memory Store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"jobscout/internal/pipeline"
)

// Store keeps rows in a slice guarded by a mutex. Appended rows are
// visible to subsequent ReadAll calls, matching the visibility contract
// of the real store.
type Store struct {
	mu   sync.Mutex
	rows []pipeline.StoreRow

	// FailAfter, when >= 0, makes AppendRows fail once that many rows of
	// the current batch have been written. Used to exercise partial-write
	// reporting.
	FailAfter int
	failErr   error

	readErr error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{FailAfter: -1}
}

// FailAppendsAfter arms the store to fail mid-batch with err.
func (s *Store) FailAppendsAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailAfter = n
	s.failErr = err
}

// EnsureSchema is a no-op for the in-memory store.
func (s *Store) EnsureSchema(_ context.Context) error {
	return nil
}

// FailReads makes every subsequent ReadAll return err.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// ReadAll returns a copy of the current rows.
func (s *Store) ReadAll(_ context.Context) ([]pipeline.StoreRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]pipeline.StoreRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// AppendRows appends rows in order, honoring an armed mid-batch failure.
func (s *Store) AppendRows(_ context.Context, rows []pipeline.StoreRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, row := range rows {
		if s.FailAfter >= 0 && written >= s.FailAfter {
			return written, s.failErr
		}
		s.rows = append(s.rows, row)
		written++
	}
	return written, nil
}

// SetStatus mutates a row's status by fingerprint, standing in for the
// human reviewer who owns that column.
func (s *Store) SetStatus(fingerprint, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Fingerprint == fingerprint {
			s.rows[i].Status = status
		}
	}
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
