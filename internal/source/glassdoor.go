package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/pipeline"
)

const glassdoorBaseURL = "https://www.glassdoor.co.in"

var glassdoorListingSelectors = []string{
	`li[data-test="jobListing"]`,
	`article[data-test="jobListing"]`,
	`.react-job-listing`,
	`.jobCard`,
}

// GlassdoorAdapter scrapes glassdoor.co.in search results. Listings
// render client-side, so pair it with the headless fetcher.
type GlassdoorAdapter struct {
	board    *Board
	maxPages int
}

// NewGlassdoor builds the adapter.
func NewGlassdoor(fetcher pipeline.Fetcher, opts ...BoardOption) *GlassdoorAdapter {
	return &GlassdoorAdapter{
		board:    NewBoard(pipeline.SourceGlassdoor, fetcher, opts...),
		maxPages: 2,
	}
}

// Source identifies the board.
func (a *GlassdoorAdapter) Source() pipeline.Source { return pipeline.SourceGlassdoor }

// Fetch walks search result pages until the cap or the last page.
func (a *GlassdoorAdapter) Fetch(ctx context.Context, criteria pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	var raws []pipeline.RawPosting
	for page := 1; page <= a.maxPages; page++ {
		searchURL := a.searchURL(criteria, page)
		doc, err := a.board.FetchDocument(ctx, searchURL)
		if err != nil {
			return nil, err
		}

		listings := firstMatch(doc, glassdoorListingSelectors...)
		if listings == nil {
			if page == 1 {
				return nil, a.board.StructureChanged(searchURL)
			}
			break
		}

		before := len(raws)
		listings.Each(func(_ int, sel *goquery.Selection) {
			if raw, ok := a.extract(sel); ok {
				raws = append(raws, raw)
			}
		})
		if len(raws) == before {
			break
		}
		if criteria.MaxRecords > 0 && len(raws) >= criteria.MaxRecords {
			break
		}
	}
	return CapRecords(raws, criteria), nil
}

func (a *GlassdoorAdapter) searchURL(criteria pipeline.FetchCriteria, page int) string {
	params := url.Values{}
	params.Set("sc.keyword", strings.Join(headKeywords(criteria.Keywords, 3), " "))
	params.Set("locKeyword", criteria.Location)
	params.Set("fromAge", "1")
	params.Set("includeNoSalaryJobs", "true")
	if page > 1 {
		params.Set("p", fmt.Sprint(page))
	}
	return glassdoorBaseURL + "/Job/jobs.htm?" + params.Encode()
}

func (a *GlassdoorAdapter) extract(sel *goquery.Selection) (pipeline.RawPosting, bool) {
	titleLink := sel.Find(`a[data-test="job-title"], .jobTitle a, a[data-test="job-link"], h2 a`).First()
	if titleLink.Length() == 0 {
		return nil, false
	}
	href, _ := titleLink.Attr("href")

	raw := pipeline.RawPosting{
		pipeline.RawTitle: text(titleLink),
		pipeline.RawLink:  absoluteURL(glassdoorBaseURL, href),
	}
	if company := sel.Find(`span[data-test="employer-name"], .employerName, a[data-test="employer-short-name"]`).First(); company.Length() > 0 {
		raw[pipeline.RawCompany] = text(company)
	}
	if loc := sel.Find(`div[data-test="job-location"], span[data-test="job-location"], .jobLocation`).First(); loc.Length() > 0 {
		raw[pipeline.RawLocation] = text(loc)
	}
	if salary := sel.Find(`span[data-test="detailSalary"], div[data-test="salary-estimate"], .salaryText`).First(); salary.Length() > 0 {
		raw[pipeline.RawSalary] = text(salary)
	}
	if posted := sel.Find(`div[data-test="job-age"], .listing-age`).First(); posted.Length() > 0 {
		raw[pipeline.RawPosted] = text(posted)
	}
	return raw, true
}
