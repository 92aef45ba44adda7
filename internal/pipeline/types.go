// Package pipeline defines core types shared across subsystems.
package pipeline

import (
	"time"
)

// Source identifies a job site an adapter scrapes.
type Source string

// Known sources, in the order runs process them.
const (
	SourceTimesJobs Source = "timesjobs"
	SourceLinkedIn  Source = "linkedin"
	SourceIndeed    Source = "indeed"
	SourceNaukri    Source = "naukri"
	SourceGlassdoor Source = "glassdoor"
	SourceCareers   Source = "careers"
)

// KnownSources returns all valid sources in canonical order.
func KnownSources() []Source {
	return []Source{
		SourceTimesJobs,
		SourceLinkedIn,
		SourceIndeed,
		SourceNaukri,
		SourceGlassdoor,
		SourceCareers,
	}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	for _, known := range KnownSources() {
		if s == known {
			return true
		}
	}
	return false
}

// RawPosting is the untyped key/value bag a SourceAdapter emits for one
// listing. It lives only until normalization.
type RawPosting map[string]string

// Raw posting keys adapters are expected to fill. Only title, company and
// link are mandatory; the rest are best effort.
const (
	RawTitle    = "title"
	RawCompany  = "company"
	RawLocation = "location"
	RawLink     = "link"
	RawPosted   = "posted"
	RawSalary   = "salary"
)

// Posting is the canonical, immutable record produced by normalization.
// A corrected posting is a new value, never an in-place edit.
type Posting struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	ApplyURL    string    `json:"apply_url"`
	Source      Source    `json:"source"`
	PostedDate  time.Time `json:"posted_date,omitzero"`
	ScrapedDate time.Time `json:"scraped_date"`
	Salary      string    `json:"salary,omitempty"`
	Fingerprint string    `json:"fingerprint"`
}

// HasPostedDate reports whether the posted date could be determined.
func (p Posting) HasPostedDate() bool {
	return !p.PostedDate.IsZero()
}

// DefaultStatus is the status a row receives on first insert. It is owned
// by the human reviewer afterwards and never touched by the pipeline again.
const DefaultStatus = "Not Applied"

// StoreRow is the persisted representation of a posting plus the
// store-owned status column.
type StoreRow struct {
	Posting
	Status string `json:"status"`
}

// NewStoreRow builds the row persisted for a freshly accepted posting.
func NewStoreRow(p Posting) StoreRow {
	return StoreRow{Posting: p, Status: DefaultStatus}
}

// FetchCriteria carries the search parameters handed to each adapter.
// ExcludeKeywords only affect the relevance filter downstream; adapters
// search on the positive terms.
type FetchCriteria struct {
	Keywords        []string
	ExcludeKeywords []string
	Location        string
	MaxRecords      int
}

// SourceStats counts what happened to one source's postings during a run.
type SourceStats struct {
	Fetched     int `json:"fetched"`
	Normalized  int `json:"normalized"`
	Malformed   int `json:"malformed"`
	FilteredOut int `json:"filtered_out"`
	Duplicates  int `json:"duplicates"`
	Written     int `json:"written"`
}

// SourceFailure records a contained per-source failure.
type SourceFailure struct {
	Source  Source       `json:"source"`
	Class   FailureClass `json:"class"`
	Message string       `json:"message"`
}

// RunSummary is the structured result of one pipeline run.
type RunSummary struct {
	RunID        string                  `json:"run_id"`
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Sources      map[Source]*SourceStats `json:"sources"`
	Failures     []SourceFailure         `json:"failures,omitempty"`
	TotalFetched int                     `json:"total_fetched"`
	TotalWritten int                     `json:"total_written"`
	FatalError   string                  `json:"fatal_error,omitempty"`
}

// Stats returns the stats bucket for src, creating it if needed.
func (r *RunSummary) Stats(src Source) *SourceStats {
	if r.Sources == nil {
		r.Sources = make(map[Source]*SourceStats)
	}
	st, ok := r.Sources[src]
	if !ok {
		st = &SourceStats{}
		r.Sources[src] = st
	}
	return st
}

// Tally recomputes the run totals from the per-source stats.
func (r *RunSummary) Tally() {
	r.TotalFetched = 0
	r.TotalWritten = 0
	for _, st := range r.Sources {
		r.TotalFetched += st.Fetched
		r.TotalWritten += st.Written
	}
}

// SyncResult reports how an append batch fared. Written is accurate even
// when the batch failed partway through.
type SyncResult struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}
