package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/pipeline"
)

const timesJobsBaseURL = "https://www.timesjobs.com"

// timesJobsListingSelectors, most specific first. The board has cycled
// through these layouts; probing in order keeps the adapter working
// across rollouts.
var timesJobsListingSelectors = []string{
	`li[class*="clearfix job-bx"]`,
	`div[class*="job-bx"]`,
	`li.clearfix`,
	`div.job-listing`,
}

// TimesJobsAdapter scrapes timesjobs.com search results.
type TimesJobsAdapter struct {
	board    *Board
	maxPages int
}

// NewTimesJobs builds the adapter.
func NewTimesJobs(fetcher pipeline.Fetcher, opts ...BoardOption) *TimesJobsAdapter {
	return &TimesJobsAdapter{
		board:    NewBoard(pipeline.SourceTimesJobs, fetcher, opts...),
		maxPages: 3,
	}
}

// Source identifies the board.
func (a *TimesJobsAdapter) Source() pipeline.Source { return pipeline.SourceTimesJobs }

// Fetch walks search result pages until the criteria cap or the last
// page. A first page that parses but yields no listings means the
// markup moved out from under the selectors.
func (a *TimesJobsAdapter) Fetch(ctx context.Context, criteria pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	var raws []pipeline.RawPosting
	for page := 1; page <= a.maxPages; page++ {
		searchURL := a.searchURL(criteria, page)
		doc, err := a.board.FetchDocument(ctx, searchURL)
		if err != nil {
			return nil, err
		}

		listings := firstMatch(doc, timesJobsListingSelectors...)
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

func (a *TimesJobsAdapter) searchURL(criteria pipeline.FetchCriteria, page int) string {
	params := url.Values{}
	params.Set("searchType", "personalizedSearch")
	params.Set("from", "submit")
	params.Set("txtKeywords", strings.Join(headKeywords(criteria.Keywords, 3), " "))
	params.Set("txtLocation", criteria.Location)
	params.Set("cboWorkExp1", "0")
	params.Set("cboWorkExp2", "10")
	if page > 1 {
		params.Set("sequence", fmt.Sprint(page))
	}
	return timesJobsBaseURL + "/candidate/job-search.html?" + params.Encode()
}

func (a *TimesJobsAdapter) extract(sel *goquery.Selection) (pipeline.RawPosting, bool) {
	titleLink := sel.Find("h2 a, h3 a").First()
	if titleLink.Length() == 0 {
		return nil, false
	}
	href, _ := titleLink.Attr("href")

	raw := pipeline.RawPosting{
		pipeline.RawTitle: text(titleLink),
		pipeline.RawLink:  absoluteURL(timesJobsBaseURL, href),
	}
	if company := sel.Find("h3.joblist-comp-name, span.comp-name, div.comp-name").First(); company.Length() > 0 {
		raw[pipeline.RawCompany] = text(company)
	}
	if loc := sel.Find("span.loc, div.location").First(); loc.Length() > 0 {
		raw[pipeline.RawLocation] = text(loc)
	}
	if salary := sel.Find("span.sal, div.salary").First(); salary.Length() > 0 {
		raw[pipeline.RawSalary] = text(salary)
	}
	if posted := sel.Find("span.sim-posted, div.posted-date").First(); posted.Length() > 0 {
		raw[pipeline.RawPosted] = text(posted)
	}
	return raw, true
}

// headKeywords keeps search URLs short on boards that choke on long
// keyword strings.
func headKeywords(keywords []string, n int) []string {
	if len(keywords) > n {
		return keywords[:n]
	}
	return keywords
}
