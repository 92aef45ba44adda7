// Package source implements job-board adapters. Each adapter knows one
// site's search URLs and listing markup; shared transport, throttling,
// retry, and error classification live in Board.
package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jobscout/internal/pipeline"
	"jobscout/internal/telemetry"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Board wraps a Fetcher with the per-source plumbing every adapter
// needs: request throttling, retry with backoff on transport errors,
// and mapping of HTTP statuses onto the failure taxonomy.
type Board struct {
	src     pipeline.Source
	fetcher pipeline.Fetcher
	retry   pipeline.RetryPolicy
	limiter *rate.Limiter
	logger  *zap.Logger
	headers http.Header
}

// BoardOption customizes a Board.
type BoardOption func(*Board)

// WithRetryPolicy replaces the default exponential policy.
func WithRetryPolicy(p pipeline.RetryPolicy) BoardOption {
	return func(b *Board) { b.retry = p }
}

// WithRateLimit throttles requests to at most rps per second.
func WithRateLimit(rps float64) BoardOption {
	return func(b *Board) {
		if rps > 0 {
			b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger attaches a logger; default is a nop logger.
func WithLogger(l *zap.Logger) BoardOption {
	return func(b *Board) {
		if l != nil {
			b.logger = l.With(zap.String("source", string(b.src)))
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) BoardOption {
	return func(b *Board) { b.headers.Set(key, value) }
}

// NewBoard builds the shared plumbing for one source.
func NewBoard(src pipeline.Source, fetcher pipeline.Fetcher, opts ...BoardOption) *Board {
	b := &Board{
		src:     src,
		fetcher: fetcher,
		retry:   pipeline.NewExponentialRetryPolicy(),
		logger:  zap.NewNop(),
		headers: http.Header{
			"User-Agent":      []string{defaultUserAgent},
			"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": []string{"en-US,en;q=0.5"},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Source reports which board this plumbing belongs to.
func (b *Board) Source() pipeline.Source { return b.src }

// FetchDocument retrieves url, retrying transport failures per the
// board's policy, and parses the body into a goquery document.
//
// Classification: 403 and 429 mean the site refused us (no retry);
// other 4xx and all 5xx plus transport errors count as unreachable.
func (b *Board) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if b.limiter != nil {
			waitStart := time.Now()
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
			telemetry.ObserveRateLimitWait(string(b.src), time.Since(waitStart))
		}

		doc, err := b.fetchOnce(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err

		if !b.retry.ShouldRetry(err, attempt) {
			return nil, lastErr
		}
		b.logger.Warn("retrying fetch",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
		case <-time.After(b.retry.Backoff(attempt)):
		}
	}
}

func (b *Board) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := b.fetcher.Fetch(ctx, pipeline.FetchRequest{URL: url, Headers: b.headers})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrUnreachable, err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d from %s", pipeline.ErrBlocked, resp.StatusCode, url)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d from %s", pipeline.ErrUnreachable, resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", pipeline.ErrStructureChanged, err)
	}
	return doc, nil
}

// StructureChanged builds the error an adapter returns when a page came
// back 200 with content but none of its known selectors matched.
func (b *Board) StructureChanged(url string) error {
	return fmt.Errorf("%w: no listings matched known selectors at %s", pipeline.ErrStructureChanged, url)
}

// CapRecords trims raws to the criteria's per-source maximum.
func CapRecords(raws []pipeline.RawPosting, criteria pipeline.FetchCriteria) []pipeline.RawPosting {
	if criteria.MaxRecords > 0 && len(raws) > criteria.MaxRecords {
		return raws[:criteria.MaxRecords]
	}
	return raws
}
