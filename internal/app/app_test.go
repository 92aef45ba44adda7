package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	notifymem "jobscout/internal/notify/memory"
	"jobscout/internal/pipeline"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	block   chan struct{}
	summary *pipeline.RunSummary
	err     error
}

func (r *fakeRunner) Run(context.Context) (*pipeline.RunSummary, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return r.summary, r.err
}

func (r *fakeRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []*pipeline.RunSummary
	err      error
}

func (a *fakeArchiver) Archive(_ context.Context, summary *pipeline.RunSummary) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, summary)
	return "file:///tmp/summary.json", a.err
}

func summaryFixture() *pipeline.RunSummary {
	s := &pipeline.RunSummary{
		RunID:     "run-1",
		StartedAt: time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
	}
	s.Stats(pipeline.SourceTimesJobs).Written = 2
	s.Tally()
	return s
}

func TestRunOnceArchivesAndPublishes(t *testing.T) {
	t.Parallel()

	archiver := &fakeArchiver{}
	publisher := notifymem.New()
	svc := NewService(&fakeRunner{summary: summaryFixture()}, archiver, publisher, zap.NewNop())

	summary, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-1", summary.RunID)

	require.Len(t, archiver.archived, 1)
	require.Len(t, publisher.Payloads(), 1)
	require.Same(t, summary, svc.Latest())
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	runner := &fakeRunner{summary: summaryFixture(), block: block}
	svc := NewService(runner, nil, nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.RunOnce(context.Background())
	}()

	require.Eventually(t, svc.Running, time.Second, time.Millisecond)

	_, err := svc.RunOnce(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)

	close(block)
	<-done
	require.Equal(t, 1, runner.Calls())
}

func TestRunOnceSurfacesRunErrorAfterDistribution(t *testing.T) {
	t.Parallel()

	runErr := &pipeline.StoreWriteError{Written: 3, Err: errors.New("connection reset")}
	archiver := &fakeArchiver{}
	svc := NewService(&fakeRunner{summary: summaryFixture(), err: runErr}, archiver, nil, zap.NewNop())

	summary, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	require.NotNil(t, summary)
	// Even a failed run's summary is archived for the operator.
	require.Len(t, archiver.archived, 1)
}

func TestArchiveFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	archiver := &fakeArchiver{err: errors.New("bucket gone")}
	svc := NewService(&fakeRunner{summary: summaryFixture()}, archiver, nil, zap.NewNop())

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
}
