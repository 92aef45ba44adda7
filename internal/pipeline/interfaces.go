package pipeline

import (
	"context"
	"io"
	"net/http"
	"time"
)

// SourceAdapter turns a job site's documents into raw posting records.
// Implementations enforce their own inter-request delay; callers never
// pace them. Failures are wrapped around ErrUnreachable, ErrBlocked or
// ErrStructureChanged.
type SourceAdapter interface {
	Source() Source
	Fetch(ctx context.Context, criteria FetchCriteria) ([]RawPosting, error)
}

// Fetcher retrieves a single document.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// FetchRequest captures everything needed to fetch one document.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Store is the external append-mostly tabular persistence layer. Rows
// appended in one call are visible to ReadAll in later runs.
type Store interface {
	// EnsureSchema establishes the table/header once. Safe to call every run.
	EnsureSchema(ctx context.Context) error
	// ReadAll returns the store's current rows.
	ReadAll(ctx context.Context) ([]StoreRow, error)
	// AppendRows appends rows in order and returns how many landed. On
	// error the count still reflects successful appends.
	AppendRows(ctx context.Context, rows []StoreRow) (int, error)
}

// Publisher pushes run summaries to a notification channel.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// BlobStore writes report artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock used outside tests.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
