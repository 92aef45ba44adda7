// Package app wires long-lived services and runs the ingestion pipeline
// end to end: pipeline run, summary archive, notification.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jobscout/internal/blob/gcs"
	"jobscout/internal/blob/local"
	"jobscout/internal/config"
	collyfetch "jobscout/internal/fetch/colly"
	"jobscout/internal/fetch/headless"
	"jobscout/internal/notify"
	"jobscout/internal/pipeline"
	"jobscout/internal/report"
	"jobscout/internal/runner"
	"jobscout/internal/source"
	"jobscout/internal/store/memory"
	"jobscout/internal/store/postgres"
)

// PipelineRunner is what the service layer needs from the orchestrator.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.RunSummary, error)
}

// Archiver persists a run summary as artifacts.
type Archiver interface {
	Archive(ctx context.Context, summary *pipeline.RunSummary) (string, error)
}

// Service runs ingestion passes and distributes their summaries. It
// serializes runs: only one pass executes at a time.
type Service struct {
	runner    PipelineRunner
	archiver  Archiver
	publisher pipeline.Publisher
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	latest  *pipeline.RunSummary
}

// NewService builds a Service. archiver and publisher may be nil, which
// disables archiving and notification respectively.
func NewService(r PipelineRunner, archiver Archiver, publisher pipeline.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		runner:    r,
		archiver:  archiver,
		publisher: publisher,
		logger:    logger,
	}
}

// ErrRunInProgress is returned when a trigger arrives mid-run.
var ErrRunInProgress = fmt.Errorf("a run is already in progress")

// RunOnce executes one full ingestion pass. The summary is archived and
// published best-effort: their failures are logged, not propagated,
// because the postings are already safely persisted by then.
func (s *Service) RunOnce(ctx context.Context) (*pipeline.RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	summary, runErr := s.runner.Run(ctx)

	s.mu.Lock()
	s.running = false
	s.latest = summary
	s.mu.Unlock()

	if summary != nil {
		if s.archiver != nil {
			if _, err := s.archiver.Archive(ctx, summary); err != nil {
				s.logger.Warn("summary archive failed", zap.Error(err))
			}
		}
		if s.publisher != nil {
			if _, err := s.publisher.Publish(ctx, summary); err != nil {
				s.logger.Warn("summary publish failed", zap.Error(err))
			}
		}
	}
	return summary, runErr
}

// Latest returns the most recent run summary, or nil before the first run.
func (s *Service) Latest() *pipeline.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Running reports whether a pass is currently executing.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunEvery triggers RunOnce immediately and then on every tick until
// the context is canceled. Overlapping triggers are skipped by the
// in-progress guard.
func (s *Service) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Build assembles the full service from configuration: fetchers,
// adapters for the enabled sources, store, orchestrator, archiver and
// publisher. The returned cleanup releases held connections.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Service, func(), error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	httpFetcher := collyfetch.New(collyfetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	var browserFetcher pipeline.Fetcher
	if cfg.Headless.Enabled {
		hf, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		cleanups = append(cleanups, hf.Close)
		browserFetcher = hf
	}

	adapters, err := buildAdapters(cfg, httpFetcher, browserFetcher, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var store pipeline.Store
	if cfg.Store.DSN != "" {
		pgStore, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Store.DSN,
			Table:           cfg.Store.Table,
			MaxConns:        int32(cfg.Store.MaxConns),
			MinConns:        int32(cfg.Store.MinConns),
			MaxConnLifetime: time.Duration(cfg.Store.LifetimeMinutes) * time.Minute,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect store: %w", err)
		}
		cleanups = append(cleanups, pgStore.Close)
		store = pgStore
	} else {
		logger.Warn("no store DSN configured, using in-memory store")
		store = memory.New()
	}

	orch := runner.New(
		runner.Config{
			Criteria:    cfg.Criteria(),
			MaxParallel: cfg.Sources.MaxParallel,
		},
		adapters,
		store,
		pipeline.SystemClock{},
		logger,
	)

	archiver, err := buildArchiver(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var publisher pipeline.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Topic != "" {
		pub, err := notify.Connect(ctx, notify.Config{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect pubsub: %w", err)
		}
		cleanups = append(cleanups, func() { _ = pub.Close() })
		publisher = pub
	}

	return NewService(orch, archiver, publisher, logger), cleanup, nil
}

func buildAdapters(
	cfg config.Config,
	httpFetcher pipeline.Fetcher,
	browserFetcher pipeline.Fetcher,
	logger *zap.Logger,
) ([]pipeline.SourceAdapter, error) {
	opts := func() []source.BoardOption {
		out := []source.BoardOption{
			source.WithLogger(logger),
			source.WithRateLimit(cfg.Fetch.RequestsPerSecond),
			source.WithRetryPolicy(pipeline.NewRetryPolicy(
				cfg.Fetch.MaxRetries,
				time.Duration(cfg.Fetch.BackoffInitialMs)*time.Millisecond,
				time.Duration(cfg.Fetch.BackoffMaxMs)*time.Millisecond,
			)),
		}
		return out
	}

	// Boards that only render listings in a browser prefer the headless
	// fetcher and fall back to plain HTTP when it is disabled.
	jsFetcher := httpFetcher
	if browserFetcher != nil {
		jsFetcher = browserFetcher
	}

	var adapters []pipeline.SourceAdapter
	for _, src := range cfg.EnabledSources() {
		switch src {
		case pipeline.SourceTimesJobs:
			adapters = append(adapters, source.NewTimesJobs(httpFetcher, opts()...))
		case pipeline.SourceIndeed:
			adapters = append(adapters, source.NewIndeed(httpFetcher, opts()...))
		case pipeline.SourceLinkedIn:
			adapters = append(adapters, source.NewLinkedIn(jsFetcher, opts()...))
		case pipeline.SourceNaukri:
			adapters = append(adapters, source.NewNaukri(jsFetcher, opts()...))
		case pipeline.SourceGlassdoor:
			adapters = append(adapters, source.NewGlassdoor(jsFetcher, opts()...))
		case pipeline.SourceCareers:
			adapters = append(adapters, source.NewCareers(httpFetcher, nil, opts()...))
		default:
			return nil, fmt.Errorf("no adapter for source %q", src)
		}
	}
	return adapters, nil
}

func buildArchiver(ctx context.Context, cfg config.Config, logger *zap.Logger) (Archiver, error) {
	switch cfg.Report.Backend {
	case "":
		return nil, nil
	case "local":
		blob, err := local.New(local.Config{BaseDir: cfg.Report.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local report store: %w", err)
		}
		return report.NewWriter(blob, logger), nil
	case "gcs":
		blob, err := gcs.Connect(ctx, gcs.Config{Bucket: cfg.Report.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs report store: %w", err)
		}
		return report.NewWriter(blob, logger), nil
	default:
		return nil, fmt.Errorf("unknown report backend %q", cfg.Report.Backend)
	}
}
