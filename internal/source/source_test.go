package source

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobscout/internal/pipeline"
)

// fakeFetcher serves canned responses keyed by call order, falling back
// to the last entry.
type fakeFetcher struct {
	responses []pipeline.FetchResponse
	errs      []error
	calls     int
	urls      []string
}

func (f *fakeFetcher) Fetch(_ context.Context, req pipeline.FetchRequest) (pipeline.FetchResponse, error) {
	idx := f.calls
	f.calls++
	f.urls = append(f.urls, req.URL)
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return f.responses[idx], err
}

func htmlResponse(status int, body string) pipeline.FetchResponse {
	return pipeline.FetchResponse{
		StatusCode: status,
		Headers:    http.Header{},
		Body:       []byte(body),
	}
}

const timesJobsPage = `
<html><body><ul>
<li class="clearfix job-bx wht-shd-bx">
  <h2><a href="/candidate/job-detail/1">SAP ABAP Consultant</a></h2>
  <h3 class="joblist-comp-name">Acme Systems</h3>
  <span class="loc">Pune</span>
  <span class="sal">8 LPA</span>
  <span class="sim-posted">Posted 3 days ago</span>
</li>
<li class="clearfix job-bx wht-shd-bx">
  <h2><a href="https://www.timesjobs.com/candidate/job-detail/2">SAP FICO Analyst</a></h2>
  <h3 class="joblist-comp-name">Globex</h3>
  <span class="loc">Pune, Maharashtra</span>
</li>
</ul></body></html>`

func noRetry() BoardOption {
	return WithRetryPolicy(pipeline.NewRetryPolicy(1, time.Millisecond, time.Millisecond))
}

func TestTimesJobsExtractsListings(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{
		htmlResponse(200, timesJobsPage),
		htmlResponse(200, `<html><body></body></html>`),
	}}
	adapter := NewTimesJobs(fetcher, noRetry())

	raws, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{
		Keywords: []string{"SAP"},
		Location: "Pune",
	})
	require.NoError(t, err)
	require.Len(t, raws, 2)

	require.Equal(t, "SAP ABAP Consultant", raws[0][pipeline.RawTitle])
	require.Equal(t, "Acme Systems", raws[0][pipeline.RawCompany])
	require.Equal(t, "Pune", raws[0][pipeline.RawLocation])
	require.Equal(t, "8 LPA", raws[0][pipeline.RawSalary])
	require.Equal(t, "Posted 3 days ago", raws[0][pipeline.RawPosted])
	// relative links resolve against the board's base
	require.Equal(t, "https://www.timesjobs.com/candidate/job-detail/1", raws[0][pipeline.RawLink])
	require.Equal(t, "https://www.timesjobs.com/candidate/job-detail/2", raws[1][pipeline.RawLink])
}

func TestTimesJobsRespectsMaxRecords(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{
		htmlResponse(200, timesJobsPage),
	}}
	adapter := NewTimesJobs(fetcher, noRetry())

	raws, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{
		Keywords:   []string{"SAP"},
		Location:   "Pune",
		MaxRecords: 1,
	})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Equal(t, 1, fetcher.calls)
}

func TestEmptyFirstPageIsStructureChanged(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{
		htmlResponse(200, `<html><body><p>jobs jobs jobs</p></body></html>`),
	}}
	adapter := NewTimesJobs(fetcher, noRetry())

	_, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{Keywords: []string{"SAP"}})
	require.Error(t, err)
	require.ErrorIs(t, err, pipeline.ErrStructureChanged)
	require.Equal(t, pipeline.FailureStructure, pipeline.Classify(err))
}

func TestForbiddenStatusIsBlockedWithoutRetry(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{
		htmlResponse(403, "denied"),
	}}
	adapter := NewLinkedIn(fetcher, WithRetryPolicy(pipeline.NewRetryPolicy(3, time.Millisecond, time.Millisecond)))

	_, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{Keywords: []string{"SAP"}})
	require.ErrorIs(t, err, pipeline.ErrBlocked)
	require.Equal(t, 1, fetcher.calls, "blocked responses must not be retried")
}

func TestServerErrorRetriesThenUnreachable(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{
		htmlResponse(502, ""),
	}}
	adapter := NewIndeed(fetcher, WithRetryPolicy(pipeline.NewRetryPolicy(3, time.Millisecond, time.Millisecond)))

	_, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{Keywords: []string{"SAP"}})
	require.ErrorIs(t, err, pipeline.ErrUnreachable)
	require.Equal(t, 3, fetcher.calls, "transport failures retry up to the attempt limit")
}

func TestTransportErrorWrapsUnreachable(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		responses: []pipeline.FetchResponse{{}},
		errs:      []error{errors.New("dial tcp: connection refused")},
	}
	adapter := NewNaukri(fetcher, noRetry())

	_, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{Keywords: []string{"SAP"}})
	require.ErrorIs(t, err, pipeline.ErrUnreachable)
	require.Equal(t, pipeline.FailureTransport, pipeline.Classify(err))
}

func TestLinkedInReadsDatetimeAttr(t *testing.T) {
	t.Parallel()

	page := `
<html><body>
<div class="base-search-card">
  <h3 class="base-search-card__title"><a href="/jobs/view/123">SAP Consultant</a></h3>
  <h4 class="base-search-card__subtitle"><a>Initech</a></h4>
  <span class="job-search-card__location">Pune</span>
  <time datetime="2025-06-12">3 days ago</time>
</div>
</body></html>`
	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{htmlResponse(200, page)}}
	adapter := NewLinkedIn(fetcher, noRetry())

	raws, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{Keywords: []string{"SAP"}})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Equal(t, "2025-06-12", raws[0][pipeline.RawPosted])
	require.Equal(t, "https://www.linkedin.com/jobs/view/123", raws[0][pipeline.RawLink])
}

func TestCareersSkipsFailingPages(t *testing.T) {
	t.Parallel()

	careersPage := `
<html><body>
<div class="job-card"><h3>SAP Basis Administrator</h3><a href="/jobs/42">view</a></div>
</body></html>`

	fetcher := &fakeFetcher{
		responses: []pipeline.FetchResponse{
			htmlResponse(500, ""),
			htmlResponse(200, careersPage),
		},
	}
	adapter := NewCareers(fetcher, []CareerPage{
		{Company: "Initech", URL: "https://initech.example/careers", Location: "Pune"},
		{Company: "Globex", URL: "https://globex.example/careers", Location: "Pune"},
	}, noRetry())

	raws, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Equal(t, "SAP Basis Administrator", raws[0][pipeline.RawTitle])
	require.Equal(t, "Globex", raws[0][pipeline.RawCompany])
	require.Equal(t, "https://globex.example/jobs/42", raws[0][pipeline.RawLink])
}

func TestCareersFailsWhenNothingReachable(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: []pipeline.FetchResponse{htmlResponse(500, "")}}
	adapter := NewCareers(fetcher, []CareerPage{
		{Company: "Initech", URL: "https://initech.example/careers"},
	}, noRetry())

	_, err := adapter.Fetch(context.Background(), pipeline.FetchCriteria{})
	require.ErrorIs(t, err, pipeline.ErrUnreachable)
}
