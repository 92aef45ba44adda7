// Package normalize maps raw scraped postings onto the canonical schema.
package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"jobscout/internal/pipeline"
)

// Normalizer turns RawPostings into canonical Postings. It is stateless
// apart from the clock that stamps the scrape date.
type Normalizer struct {
	clock pipeline.Clock
}

// New builds a Normalizer.
func New(clock pipeline.Clock) *Normalizer {
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	return &Normalizer{clock: clock}
}

// Normalize validates and cleans one raw posting. Title, company and an
// absolute apply URL are mandatory; a missing or unparseable posted date
// degrades to unknown rather than failing the record.
func (n *Normalizer) Normalize(raw pipeline.RawPosting, src pipeline.Source) (pipeline.Posting, error) {
	title := CleanText(raw[pipeline.RawTitle])
	company := CleanText(raw[pipeline.RawCompany])
	link := strings.TrimSpace(raw[pipeline.RawLink])

	if title == "" {
		return pipeline.Posting{}, fmt.Errorf("%s: empty title: %w", src, pipeline.ErrMalformedRecord)
	}
	if company == "" {
		return pipeline.Posting{}, fmt.Errorf("%s: empty company: %w", src, pipeline.ErrMalformedRecord)
	}
	applyURL, err := canonicalURL(link)
	if err != nil {
		return pipeline.Posting{}, fmt.Errorf("%s: %v: %w", src, err, pipeline.ErrMalformedRecord)
	}

	now := n.clock.Now().UTC()
	scraped := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	p := pipeline.Posting{
		Title:       title,
		Company:     company,
		Location:    CleanText(raw[pipeline.RawLocation]),
		ApplyURL:    applyURL,
		Source:      src,
		ScrapedDate: scraped,
		Salary:      ExtractSalary(raw[pipeline.RawSalary]),
	}
	if posted, ok := ParseDate(raw[pipeline.RawPosted], now); ok {
		p.PostedDate = posted
	}
	p.Fingerprint = pipeline.Fingerprint(p.Title, p.Company, p.ApplyURL)
	return p, nil
}

// CleanText collapses whitespace (including non-breaking spaces) and trims.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// canonicalURL validates that raw is an absolute http(s) URL and strips
// tracking noise so the same job links compare equal across scrapes.
func canonicalURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty apply url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse apply url: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("apply url %q is not absolute", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "gclid" || lk == "fbclid" || lk == "msclkid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
