package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jobscout/internal/pipeline"
	"jobscout/internal/store/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeAdapter struct {
	src  pipeline.Source
	raws []pipeline.RawPosting
	err  error
}

func (a *fakeAdapter) Source() pipeline.Source { return a.src }

func (a *fakeAdapter) Fetch(context.Context, pipeline.FetchCriteria) ([]pipeline.RawPosting, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.raws, nil
}

func raw(title, company, link string) pipeline.RawPosting {
	return pipeline.RawPosting{
		pipeline.RawTitle:   title,
		pipeline.RawCompany: company,
		pipeline.RawLink:    link,
	}
}

func newOrchestrator(adapters []pipeline.SourceAdapter, st pipeline.Store) *Orchestrator {
	return New(
		Config{Criteria: pipeline.FetchCriteria{Keywords: []string{"SAP"}}},
		adapters,
		st,
		fixedClock{now: time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)},
		zap.NewNop(),
	)
}

func TestRunWritesAcceptedPostings(t *testing.T) {
	t.Parallel()

	st := memory.New()
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP ABAP Consultant", "Acme", "https://acme.example/1"),
			raw("SAP FICO Analyst", "Globex", "https://globex.example/2"),
		}},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)

	stats := summary.Sources[pipeline.SourceTimesJobs]
	require.Equal(t, 2, stats.Fetched)
	require.Equal(t, 2, stats.Normalized)
	require.Equal(t, 2, stats.Written)
	require.Equal(t, 2, summary.TotalWritten)
	require.Equal(t, 2, st.Len())
}

func TestSecondRunWritesNothing(t *testing.T) {
	t.Parallel()

	st := memory.New()
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP ABAP Consultant", "Acme", "https://acme.example/1"),
		}},
	}

	first, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.TotalWritten)

	second, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, second.TotalWritten)
	require.Equal(t, 1, second.Sources[pipeline.SourceTimesJobs].Duplicates)
	require.Equal(t, 1, st.Len())
}

func TestSourceFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	st := memory.New()
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceLinkedIn, err: fmt.Errorf("%w: markup moved", pipeline.ErrStructureChanged)},
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP Consultant", "Acme", "https://acme.example/1"),
		}},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	require.Equal(t, pipeline.SourceLinkedIn, summary.Failures[0].Source)
	require.Equal(t, pipeline.FailureStructure, summary.Failures[0].Class)
	require.Equal(t, 1, summary.TotalWritten)
	require.Equal(t, 1, st.Len())
}

func TestCrossSourceDuplicateWritesOneRow(t *testing.T) {
	t.Parallel()

	st := memory.New()
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP Consultant", "Acme", "https://acme.example/1"),
		}},
		&fakeAdapter{src: pipeline.SourceIndeed, raws: []pipeline.RawPosting{
			raw("SAP CONSULTANT", "ACME", "HTTPS://ACME.EXAMPLE/1"),
		}},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.TotalWritten)
	require.Equal(t, 1, st.Len())

	dupes := summary.Sources[pipeline.SourceTimesJobs].Duplicates +
		summary.Sources[pipeline.SourceIndeed].Duplicates
	require.Equal(t, 1, dupes, "exactly one side loses the race")
}

func TestStoreWriteFailurePreservesWrittenCount(t *testing.T) {
	t.Parallel()

	st := memory.New()
	st.FailAppendsAfter(7, errors.New("connection dropped"))

	var raws []pipeline.RawPosting
	for i := range 10 {
		raws = append(raws, raw(
			fmt.Sprintf("SAP Consultant %d", i),
			"Acme",
			fmt.Sprintf("https://acme.example/%d", i),
		))
	}
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: raws},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.Error(t, err)

	var storeErr *pipeline.StoreWriteError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, 7, storeErr.Written)
	require.Equal(t, 7, summary.TotalWritten)
	require.Equal(t, 7, summary.Sources[pipeline.SourceTimesJobs].Written)
	require.NotEmpty(t, summary.FatalError)
	require.Equal(t, 7, st.Len())
}

func TestMalformedRecordsAreSkippedNotFatal(t *testing.T) {
	t.Parallel()

	st := memory.New()
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP Consultant", "Acme", "https://acme.example/1"),
			raw("", "Acme", "https://acme.example/2"),
			raw("SAP Analyst", "Globex", "not-a-url"),
		}},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)

	stats := summary.Sources[pipeline.SourceTimesJobs]
	require.Equal(t, 3, stats.Fetched)
	require.Equal(t, 2, stats.Malformed)
	require.Equal(t, 1, stats.Written)
}

func TestFilteredPostingsAreCountedNotWritten(t *testing.T) {
	t.Parallel()

	st := memory.New()
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP Consultant", "Acme", "https://acme.example/1"),
			raw("Java Developer", "Globex", "https://globex.example/2"),
		}},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.NoError(t, err)

	stats := summary.Sources[pipeline.SourceTimesJobs]
	require.Equal(t, 1, stats.FilteredOut)
	require.Equal(t, 1, stats.Written)
}

func TestDedupSnapshotLoadFailureIsFatal(t *testing.T) {
	t.Parallel()

	st := memory.New()
	st.FailReads(errors.New("store unavailable"))
	adapters := []pipeline.SourceAdapter{
		&fakeAdapter{src: pipeline.SourceTimesJobs, raws: []pipeline.RawPosting{
			raw("SAP Consultant", "Acme", "https://acme.example/1"),
		}},
	}

	summary, err := newOrchestrator(adapters, st).Run(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, summary.FatalError)
	require.Zero(t, summary.TotalWritten)
}
