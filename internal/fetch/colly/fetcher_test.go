package collyfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobscout/internal/pipeline"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "jobscout-test", r.Header.Get("User-Agent"))
		require.Equal(t, "en-US", r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>listings</body></html>"))
	}))
	defer ts.Close()

	f := New(Config{UserAgent: "jobscout-test", Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), pipeline.FetchRequest{
		URL:     ts.URL,
		Headers: http.Header{"Accept-Language": []string{"en-US"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "listings")
	require.Positive(t, resp.Duration)
}

func TestFetchSurfacesNon2xxAsResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer ts.Close()

	f := New(Config{Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), pipeline.FetchRequest{URL: ts.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 10 * time.Second})
	_, err := f.Fetch(ctx, pipeline.FetchRequest{URL: ts.URL})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchUnreachableHostFails(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), pipeline.FetchRequest{URL: "http://127.0.0.1:1/jobs"})
	require.Error(t, err)
}
