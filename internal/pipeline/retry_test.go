package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldRetryOnlyTransport(t *testing.T) {
	t.Parallel()
	p := NewExponentialRetryPolicy()

	require.True(t, p.ShouldRetry(fmt.Errorf("timesjobs: %w", ErrUnreachable), 0))
	require.False(t, p.ShouldRetry(fmt.Errorf("glassdoor: %w", ErrBlocked), 0))
	require.False(t, p.ShouldRetry(fmt.Errorf("naukri: %w", ErrStructureChanged), 0))
	require.False(t, p.ShouldRetry(nil, 0))
}

func TestShouldRetryRespectsAttemptLimit(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(2, time.Millisecond, time.Second)

	err := fmt.Errorf("fetch: %w", ErrUnreachable)
	require.True(t, p.ShouldRetry(err, 0))
	require.True(t, p.ShouldRetry(err, 1))
	require.False(t, p.ShouldRetry(err, 2))
}

func TestShouldRetryStopsOnContextErrors(t *testing.T) {
	t.Parallel()
	p := NewExponentialRetryPolicy()

	require.False(t, p.ShouldRetry(context.Canceled, 0))
	require.False(t, p.ShouldRetry(context.DeadlineExceeded, 0))
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()
	p := NewRetryPolicy(5, 100*time.Millisecond, time.Second)

	first := p.Backoff(0)
	require.GreaterOrEqual(t, first, 50*time.Millisecond)
	require.LessOrEqual(t, first, 100*time.Millisecond)

	capped := p.Backoff(10)
	require.LessOrEqual(t, capped, time.Second)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, FailureTransport, Classify(fmt.Errorf("x: %w", ErrUnreachable)))
	require.Equal(t, FailureBlocked, Classify(fmt.Errorf("x: %w", ErrBlocked)))
	require.Equal(t, FailureStructure, Classify(fmt.Errorf("x: %w", ErrStructureChanged)))
	require.Equal(t, FailureUnknown, Classify(fmt.Errorf("boom")))
}
