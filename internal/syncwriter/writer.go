// Package syncwriter reconciles accepted postings into the external store.
package syncwriter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jobscout/internal/pipeline"
)

// Writer appends net-new rows to the store. It is the single serialization
// point for state leaving the pipeline: callers batch all accepted
// postings from a run and make one Sync call.
type Writer struct {
	store  pipeline.Store
	logger *zap.Logger
}

// New builds a Writer.
func New(store pipeline.Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger}
}

// Sync establishes the schema if needed, then appends one row per posting
// in the order received. Status is set to its default only here, at
// creation; existing rows are never re-read or rewritten. On failure the
// returned StoreWriteError carries the true written count.
func (w *Writer) Sync(ctx context.Context, postings []pipeline.Posting) (pipeline.SyncResult, error) {
	if err := w.store.EnsureSchema(ctx); err != nil {
		return pipeline.SyncResult{}, &pipeline.StoreWriteError{Written: 0, Err: fmt.Errorf("ensure schema: %w", err)}
	}
	if len(postings) == 0 {
		return pipeline.SyncResult{}, nil
	}

	rows := make([]pipeline.StoreRow, 0, len(postings))
	for _, p := range postings {
		rows = append(rows, pipeline.NewStoreRow(p))
	}

	written, err := w.store.AppendRows(ctx, rows)
	if err != nil {
		w.logger.Error("append aborted mid-batch",
			zap.Int("written", written),
			zap.Int("attempted", len(rows)),
			zap.Error(err),
		)
		return pipeline.SyncResult{Written: written}, &pipeline.StoreWriteError{Written: written, Err: err}
	}

	w.logger.Info("postings appended",
		zap.Int("written", written),
		zap.Int("skipped", len(rows)-written),
	)
	return pipeline.SyncResult{Written: written, Skipped: len(rows) - written}, nil
}
