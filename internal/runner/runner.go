// Package runner drives a full ingestion run across all sources.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobscout/internal/dedup"
	"jobscout/internal/filter"
	"jobscout/internal/normalize"
	"jobscout/internal/pipeline"
	"jobscout/internal/syncwriter"
	"jobscout/internal/telemetry"
)

// Config controls one orchestrator instance.
type Config struct {
	Criteria    pipeline.FetchCriteria
	MaxParallel int
}

// Orchestrator runs the fetch/normalize/filter/dedup/persist pipeline.
//
// Sources are fetched concurrently and isolated from each other: one
// source failing, in any class, never blocks the rest. All accepted
// postings are persisted through a single Sync call at the end, so only
// store errors can fail the whole run.
type Orchestrator struct {
	cfg        Config
	adapters   []pipeline.SourceAdapter
	normalizer *normalize.Normalizer
	relevance  *filter.Filter
	store      pipeline.Store
	writer     *syncwriter.Writer
	clock      pipeline.Clock
	logger     *zap.Logger
}

// New wires an Orchestrator. A nil clock means wall clock; a nil logger
// is replaced with a nop.
func New(
	cfg Config,
	adapters []pipeline.SourceAdapter,
	store pipeline.Store,
	clock pipeline.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 3
	}
	telemetry.Init()
	return &Orchestrator{
		cfg:        cfg,
		adapters:   adapters,
		normalizer: normalize.New(clock),
		relevance: filter.New(filter.Criteria{
			Keywords:        cfg.Criteria.Keywords,
			ExcludeKeywords: cfg.Criteria.ExcludeKeywords,
			Location:        cfg.Criteria.Location,
		}),
		store:  store,
		writer: syncwriter.New(store, logger),
		clock:  clock,
		logger: logger,
	}
}

// sourceBatch holds one source's accepted postings, in fetch order.
type sourceBatch struct {
	source   pipeline.Source
	postings []pipeline.Posting
}

// Run executes one full ingestion pass and always returns a summary,
// even on failure. The returned error is non-nil only for whole-run
// failures: the pre-fetch store read and the final store write.
func (o *Orchestrator) Run(ctx context.Context) (*pipeline.RunSummary, error) {
	started := o.clock.Now()
	summary := &pipeline.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Sources:   make(map[pipeline.Source]*pipeline.SourceStats),
	}
	log := o.logger.With(zap.String("run_id", summary.RunID))
	log.Info("run started", zap.Int("sources", len(o.adapters)))

	// The dedup snapshot is loaded exactly once, before any fetch.
	index, err := dedup.Load(ctx, o.store)
	if err != nil {
		summary.FinishedAt = o.clock.Now()
		summary.FatalError = fmt.Sprintf("load dedup snapshot: %v", err)
		telemetry.ObserveRun("fatal", summary.FinishedAt.Sub(started))
		return summary, fmt.Errorf("load dedup snapshot: %w", err)
	}
	log.Debug("dedup snapshot loaded", zap.Int("known", index.KnownCount()))

	batches := o.fetchAll(ctx, summary, index, log)

	// One serialized persist for the whole run.
	var all []pipeline.Posting
	var order []pipeline.Source
	for _, batch := range batches {
		all = append(all, batch.postings...)
		for range batch.postings {
			order = append(order, batch.source)
		}
	}

	result, syncErr := o.writer.Sync(ctx, all)
	for i := 0; i < result.Written && i < len(order); i++ {
		summary.Stats(order[i]).Written++
	}
	for src, stats := range summary.Sources {
		telemetry.ObservePostings(string(src), telemetry.OutcomeWritten, stats.Written)
	}

	summary.FinishedAt = o.clock.Now()
	summary.Tally()

	if syncErr != nil {
		summary.FatalError = syncErr.Error()
		telemetry.ObserveRun("fatal", summary.FinishedAt.Sub(started))
		log.Error("run failed on store write",
			zap.Int("written", result.Written),
			zap.Error(syncErr),
		)
		return summary, syncErr
	}

	telemetry.ObserveRun(runResult(summary), summary.FinishedAt.Sub(started))
	log.Info("run finished",
		zap.Int("fetched", summary.TotalFetched),
		zap.Int("written", summary.TotalWritten),
		zap.Int("failures", len(summary.Failures)),
		zap.Duration("elapsed", summary.FinishedAt.Sub(started)),
	)
	return summary, nil
}

// fetchAll fans out over adapters with bounded parallelism. Failures
// are recorded per source; the group itself never errors.
func (o *Orchestrator) fetchAll(
	ctx context.Context,
	summary *pipeline.RunSummary,
	index *dedup.Index,
	log *zap.Logger,
) []sourceBatch {
	var (
		mu      sync.Mutex
		batches []sourceBatch
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxParallel)

	for _, adapter := range o.adapters {
		g.Go(func() error {
			src := adapter.Source()
			fetchStart := time.Now()
			raws, err := adapter.Fetch(gctx, o.cfg.Criteria)
			telemetry.ObserveFetch(string(src), time.Since(fetchStart))

			mu.Lock()
			defer mu.Unlock()

			stats := summary.Stats(src)
			if err != nil {
				class := pipeline.Classify(err)
				summary.Failures = append(summary.Failures, pipeline.SourceFailure{
					Source:  src,
					Class:   class,
					Message: err.Error(),
				})
				telemetry.ObserveSourceFailure(string(src), string(class))
				log.Warn("source failed",
					zap.String("source", string(src)),
					zap.String("class", string(class)),
					zap.Error(err),
				)
				return nil
			}

			stats.Fetched = len(raws)
			telemetry.ObservePostings(string(src), telemetry.OutcomeFetched, len(raws))

			batch := sourceBatch{source: src}
			for _, raw := range raws {
				posting, err := o.normalizer.Normalize(raw, src)
				if err != nil {
					stats.Malformed++
					log.Debug("record skipped",
						zap.String("source", string(src)),
						zap.Error(err),
					)
					continue
				}
				stats.Normalized++
				if !o.relevance.Matches(posting) {
					stats.FilteredOut++
					continue
				}
				if !index.Accept(posting) {
					stats.Duplicates++
					continue
				}
				batch.postings = append(batch.postings, posting)
			}
			telemetry.ObservePostings(string(src), telemetry.OutcomeMalformed, stats.Malformed)
			telemetry.ObservePostings(string(src), telemetry.OutcomeFiltered, stats.FilteredOut)
			telemetry.ObservePostings(string(src), telemetry.OutcomeDuplicate, stats.Duplicates)

			batches = append(batches, batch)
			return nil
		})
	}
	_ = g.Wait()
	return batches
}

func runResult(summary *pipeline.RunSummary) string {
	if len(summary.Failures) > 0 {
		return "partial"
	}
	return "ok"
}
