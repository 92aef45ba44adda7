package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/pipeline"
)

const linkedInBaseURL = "https://www.linkedin.com"

var linkedInListingSelectors = []string{
	`.base-search-card`,
	`.job-search-card`,
	`.jobs-search__results-list li`,
	`[data-entity-urn*="job"]`,
}

// LinkedInAdapter scrapes the public LinkedIn job search. The board
// gates aggressively, so this adapter fetches a single page and keeps
// the record cap small; the caller's rate limit does the pacing.
type LinkedInAdapter struct {
	board       *Board
	sessionJobs int
}

// NewLinkedIn builds the adapter.
func NewLinkedIn(fetcher pipeline.Fetcher, opts ...BoardOption) *LinkedInAdapter {
	return &LinkedInAdapter{
		board:       NewBoard(pipeline.SourceLinkedIn, fetcher, opts...),
		sessionJobs: 10,
	}
}

// Source identifies the board.
func (a *LinkedInAdapter) Source() pipeline.Source { return pipeline.SourceLinkedIn }

// Fetch retrieves one public search page.
func (a *LinkedInAdapter) Fetch(ctx context.Context, criteria pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	searchURL := a.searchURL(criteria)
	doc, err := a.board.FetchDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	listings := firstMatch(doc, linkedInListingSelectors...)
	if listings == nil {
		return nil, a.board.StructureChanged(searchURL)
	}

	var raws []pipeline.RawPosting
	listings.Each(func(_ int, sel *goquery.Selection) {
		if raw, ok := a.extract(sel); ok {
			raws = append(raws, raw)
		}
	})
	if len(raws) == 0 {
		return nil, a.board.StructureChanged(searchURL)
	}

	capped := criteria
	if capped.MaxRecords == 0 || capped.MaxRecords > a.sessionJobs {
		capped.MaxRecords = a.sessionJobs
	}
	return CapRecords(raws, capped), nil
}

func (a *LinkedInAdapter) searchURL(criteria pipeline.FetchCriteria) string {
	params := url.Values{}
	params.Set("keywords", strings.Join(headKeywords(criteria.Keywords, 3), " "))
	params.Set("location", criteria.Location)
	params.Set("f_TPR", "r86400")
	params.Set("f_JT", "F")
	return linkedInBaseURL + "/jobs/search?" + params.Encode()
}

func (a *LinkedInAdapter) extract(sel *goquery.Selection) (pipeline.RawPosting, bool) {
	titleLink := sel.Find("h3.base-search-card__title a, .job-search-card__title a, .base-card__full-link").First()
	if titleLink.Length() == 0 {
		return nil, false
	}
	href, _ := titleLink.Attr("href")

	raw := pipeline.RawPosting{
		pipeline.RawTitle: text(titleLink),
		pipeline.RawLink:  absoluteURL(linkedInBaseURL, href),
	}
	if company := sel.Find("h4.base-search-card__subtitle a, .job-search-card__subtitle-link, .base-search-card__subtitle").First(); company.Length() > 0 {
		raw[pipeline.RawCompany] = text(company)
	}
	if loc := sel.Find(".job-search-card__location, .base-search-card__metadata span").First(); loc.Length() > 0 {
		raw[pipeline.RawLocation] = text(loc)
	}
	if posted := sel.Find("time").First(); posted.Length() > 0 {
		if dt, ok := posted.Attr("datetime"); ok && dt != "" {
			raw[pipeline.RawPosted] = dt
		} else {
			raw[pipeline.RawPosted] = text(posted)
		}
	}
	return raw, true
}
