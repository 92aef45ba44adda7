package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"jobscout/internal/pipeline"
)

// CareerPage describes one company careers site to poll. These pages
// rarely share markup, so each carries its own listing and title
// selectors, with generic fallbacks when empty.
type CareerPage struct {
	Company          string
	URL              string
	Location         string
	ListingSelector  string
	TitleSelector    string
	LocationSelector string
}

var defaultCareerPages = []CareerPage{
	{Company: "Infosys", URL: "https://www.infosys.com/careers/job-search.html", Location: "Pune, Maharashtra"},
	{Company: "TCS", URL: "https://www.tcs.com/careers/tcs-careers-search", Location: "Pune, Maharashtra"},
	{Company: "Wipro", URL: "https://careers.wipro.com/careers-home/jobs", Location: "Pune, Maharashtra"},
	{Company: "Tech Mahindra", URL: "https://careers.techmahindra.com/job-search/", Location: "Pune, Maharashtra"},
	{Company: "Capgemini", URL: "https://www.capgemini.com/careers/job-search/", Location: "Pune, Maharashtra"},
}

var genericListingSelectors = []string{
	`.job-card`,
	`.career-opportunity`,
	`.job-listing`,
	`div[class*="job"]`,
}

// CareersAdapter polls a fixed set of company career pages. A page
// that fails or parses to nothing is logged and skipped rather than
// failing the whole source; career pages disappear and move too often
// for one bad page to be a signal.
type CareersAdapter struct {
	board *Board
	pages []CareerPage
}

// NewCareers builds the adapter. Passing no pages uses the built-in
// company list.
func NewCareers(fetcher pipeline.Fetcher, pages []CareerPage, opts ...BoardOption) *CareersAdapter {
	if len(pages) == 0 {
		pages = defaultCareerPages
	}
	return &CareersAdapter{
		board: NewBoard(pipeline.SourceCareers, fetcher, opts...),
		pages: pages,
	}
}

// Source identifies the board.
func (a *CareersAdapter) Source() pipeline.Source { return pipeline.SourceCareers }

// Fetch visits every configured page. The source only fails outright
// when no page could be reached at all.
func (a *CareersAdapter) Fetch(ctx context.Context, criteria pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	var (
		raws    []pipeline.RawPosting
		lastErr error
		reached int
	)
	for _, page := range a.pages {
		if criteria.MaxRecords > 0 && len(raws) >= criteria.MaxRecords {
			break
		}
		doc, err := a.board.FetchDocument(ctx, page.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			a.board.logger.Warn("career page skipped",
				zap.String("company", page.Company),
				zap.Error(err),
			)
			continue
		}
		reached++
		raws = append(raws, a.extractPage(doc, page)...)
	}
	if reached == 0 && lastErr != nil {
		return nil, lastErr
	}
	return CapRecords(raws, criteria), nil
}

func (a *CareersAdapter) extractPage(doc *goquery.Document, page CareerPage) []pipeline.RawPosting {
	selectors := genericListingSelectors
	if page.ListingSelector != "" {
		selectors = append([]string{page.ListingSelector}, selectors...)
	}
	listings := firstMatch(doc, selectors...)
	if listings == nil {
		return nil
	}

	titleSelector := page.TitleSelector
	if titleSelector == "" {
		titleSelector = "h3, h4, .title, .job-title"
	}

	var raws []pipeline.RawPosting
	listings.Each(func(_ int, sel *goquery.Selection) {
		title := text(sel.Find(titleSelector).First())
		if title == "" {
			return
		}
		raw := pipeline.RawPosting{
			pipeline.RawTitle:    title,
			pipeline.RawCompany:  page.Company,
			pipeline.RawLocation: page.Location,
			pipeline.RawLink:     page.URL,
		}
		if page.LocationSelector != "" {
			if loc := text(sel.Find(page.LocationSelector).First()); loc != "" {
				raw[pipeline.RawLocation] = loc
			}
		}
		if link := sel.Find("a").First(); link.Length() > 0 {
			if href, ok := link.Attr("href"); ok {
				if resolved := absoluteURL(page.URL, href); resolved != "" {
					raw[pipeline.RawLink] = resolved
				}
			}
		}
		raws = append(raws, raw)
	})
	return raws
}
