package pipeline

import (
	"errors"
	"fmt"
)

// FailureClass buckets per-source failures for retry policy and reporting.
type FailureClass string

// Failure classes surfaced in run summaries.
const (
	FailureTransport FailureClass = "transport"
	FailureBlocked   FailureClass = "blocked"
	FailureStructure FailureClass = "structure_changed"
	FailureUnknown   FailureClass = "unknown"
)

// Sentinel errors for the adapter contract. Adapters wrap these so callers
// can branch with errors.Is without knowing the concrete source.
var (
	// ErrUnreachable covers network failures and timeouts. Retryable.
	ErrUnreachable = errors.New("source unreachable")

	// ErrBlocked means the site detected automation. Not retried within a
	// run; surfaced for operator attention.
	ErrBlocked = errors.New("source blocked automated access")

	// ErrStructureChanged means parsing found none of the expected markup
	// where content was present. The adapter needs maintenance.
	ErrStructureChanged = errors.New("page structure changed")

	// ErrMalformedRecord marks a single posting that failed normalization.
	// It never aborts the rest of the source's postings.
	ErrMalformedRecord = errors.New("malformed posting record")
)

// Classify maps an adapter error onto its failure class.
func Classify(err error) FailureClass {
	switch {
	case errors.Is(err, ErrBlocked):
		return FailureBlocked
	case errors.Is(err, ErrStructureChanged):
		return FailureStructure
	case errors.Is(err, ErrUnreachable):
		return FailureTransport
	default:
		return FailureUnknown
	}
}

// StoreWriteError is fatal for a run. Written preserves the count of rows
// that landed before the failure so the summary stays accurate.
type StoreWriteError struct {
	Written int
	Err     error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed after %d rows: %v", e.Written, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
