package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/pipeline"
)

const naukriBaseURL = "https://www.naukri.com"

var naukriListingSelectors = []string{
	`article[data-job-id]`,
	`div.srp-jobtuple-wrapper`,
	`div.jobTuple`,
	`article.jobTuple`,
}

// NaukriAdapter scrapes naukri.com search results. The board renders
// listings client-side, so it is normally paired with the headless
// fetcher; against the plain fetcher it still works on cached/SSR pages.
type NaukriAdapter struct {
	board    *Board
	maxPages int
}

// NewNaukri builds the adapter.
func NewNaukri(fetcher pipeline.Fetcher, opts ...BoardOption) *NaukriAdapter {
	return &NaukriAdapter{
		board:    NewBoard(pipeline.SourceNaukri, fetcher, opts...),
		maxPages: 5,
	}
}

// Source identifies the board.
func (a *NaukriAdapter) Source() pipeline.Source { return pipeline.SourceNaukri }

// Fetch walks search result pages until the cap or the last page.
func (a *NaukriAdapter) Fetch(ctx context.Context, criteria pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	var raws []pipeline.RawPosting
	for page := 1; page <= a.maxPages; page++ {
		searchURL := a.searchURL(criteria, page)
		doc, err := a.board.FetchDocument(ctx, searchURL)
		if err != nil {
			return nil, err
		}

		listings := firstMatch(doc, naukriListingSelectors...)
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

func (a *NaukriAdapter) searchURL(criteria pipeline.FetchCriteria, page int) string {
	params := url.Values{}
	params.Set("k", strings.Join(criteria.Keywords, " OR "))
	params.Set("l", criteria.Location)
	if page > 1 {
		params.Set("p", fmt.Sprint(page))
	}
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(criteria.Location), " ", "-"))
	return naukriBaseURL + "/jobs-in-" + url.PathEscape(slug) + "?" + params.Encode()
}

func (a *NaukriAdapter) extract(sel *goquery.Selection) (pipeline.RawPosting, bool) {
	titleLink := sel.Find("a.title").First()
	if titleLink.Length() == 0 {
		titleLink = sel.Find("h2 a, h3 a").First()
	}
	if titleLink.Length() == 0 {
		return nil, false
	}
	href, _ := titleLink.Attr("href")

	raw := pipeline.RawPosting{
		pipeline.RawTitle: text(titleLink),
		pipeline.RawLink:  absoluteURL(naukriBaseURL, href),
	}
	if company := sel.Find("a.subTitle, div.companyInfo, span.companyName").First(); company.Length() > 0 {
		raw[pipeline.RawCompany] = text(company)
	}
	if loc := sel.Find("span.locationsContainer, span.location, div.location").First(); loc.Length() > 0 {
		raw[pipeline.RawLocation] = text(loc)
	}
	if salary := sel.Find("span.salary, div.salary").First(); salary.Length() > 0 {
		raw[pipeline.RawSalary] = text(salary)
	}
	if posted := sel.Find("span.date, div.jobTupleFooter span").First(); posted.Length() > 0 {
		raw[pipeline.RawPosted] = text(posted)
	}
	return raw, true
}
