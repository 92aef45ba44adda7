package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/pipeline"
)

const indeedBaseURL = "https://in.indeed.com"

var indeedListingSelectors = []string{
	`div[data-jk]`,
	`div.job_seen_beacon`,
	`td.resultContent`,
	`div.jobsearch-SerpJobCard`,
}

// IndeedAdapter scrapes in.indeed.com search results, restricted to
// recent postings sorted by date.
type IndeedAdapter struct {
	board    *Board
	maxPages int
	perPage  int
}

// NewIndeed builds the adapter.
func NewIndeed(fetcher pipeline.Fetcher, opts ...BoardOption) *IndeedAdapter {
	return &IndeedAdapter{
		board:    NewBoard(pipeline.SourceIndeed, fetcher, opts...),
		maxPages: 5,
		perPage:  10,
	}
}

// Source identifies the board.
func (a *IndeedAdapter) Source() pipeline.Source { return pipeline.SourceIndeed }

// Fetch walks result pages via the start offset.
func (a *IndeedAdapter) Fetch(ctx context.Context, criteria pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	var raws []pipeline.RawPosting
	for page := 0; page < a.maxPages; page++ {
		searchURL := a.searchURL(criteria, page*a.perPage)
		doc, err := a.board.FetchDocument(ctx, searchURL)
		if err != nil {
			return nil, err
		}

		listings := firstMatch(doc, indeedListingSelectors...)
		if listings == nil {
			if page == 0 {
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

func (a *IndeedAdapter) searchURL(criteria pipeline.FetchCriteria, start int) string {
	params := url.Values{}
	params.Set("q", strings.Join(criteria.Keywords, " "))
	params.Set("l", criteria.Location)
	params.Set("fromage", "7")
	params.Set("sort", "date")
	if start > 0 {
		params.Set("start", fmt.Sprint(start))
	}
	return indeedBaseURL + "/jobs?" + params.Encode()
}

func (a *IndeedAdapter) extract(sel *goquery.Selection) (pipeline.RawPosting, bool) {
	titleLink := sel.Find("h2.jobTitle a, a[data-jk]").First()
	if titleLink.Length() == 0 {
		return nil, false
	}
	title := text(titleLink)
	if t, ok := titleLink.Attr("title"); ok && t != "" {
		title = t
	}
	href, _ := titleLink.Attr("href")

	raw := pipeline.RawPosting{
		pipeline.RawTitle: title,
		pipeline.RawLink:  absoluteURL(indeedBaseURL, href),
	}
	if company := sel.Find(`span.companyName, a[data-testid="company-name"], div.companyName`).First(); company.Length() > 0 {
		raw[pipeline.RawCompany] = text(company)
	}
	if loc := sel.Find(`div.companyLocation, div[data-testid="job-location"]`).First(); loc.Length() > 0 {
		raw[pipeline.RawLocation] = text(loc)
	}
	if salary := sel.Find(`span.salary-snippet, div.salary-snippet-container, span[data-testid="job-salary"]`).First(); salary.Length() > 0 {
		raw[pipeline.RawSalary] = text(salary)
	}
	if posted := sel.Find(`span.date, time, span[data-testid="job-age"]`).First(); posted.Length() > 0 {
		raw[pipeline.RawPosted] = text(posted)
	}
	return raw, true
}
