// Package report renders run summaries and archives them as artifacts.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"jobscout/internal/pipeline"
)

// Writer archives each run's summary through a BlobStore: the machine
// readable JSON next to a short human readable text rendering.
type Writer struct {
	blob   pipeline.BlobStore
	logger *zap.Logger
}

// NewWriter builds a Writer.
func NewWriter(blob pipeline.BlobStore, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{blob: blob, logger: logger}
}

// Archive writes both artifacts for the run and returns the JSON URI.
func (w *Writer) Archive(ctx context.Context, summary *pipeline.RunSummary) (string, error) {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	base := fmt.Sprintf("runs/%s/%s", summary.StartedAt.UTC().Format("2006-01-02"), summary.RunID)

	jsonURI, err := w.blob.PutObject(ctx, base+"/summary.json", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("write summary json: %w", err)
	}

	textURI, err := w.blob.PutObject(ctx, base+"/summary.txt", "text/plain; charset=utf-8", strings.NewReader(Render(summary)))
	if err != nil {
		return "", fmt.Errorf("write summary text: %w", err)
	}

	w.logger.Info("run summary archived",
		zap.String("run_id", summary.RunID),
		zap.String("json", jsonURI),
		zap.String("text", textURI),
	)
	return jsonURI, nil
}

// Render produces the human readable report for one run.
func Render(summary *pipeline.RunSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s\n", summary.RunID)
	fmt.Fprintf(&b, "Started:  %s\n", summary.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Finished: %s\n", summary.FinishedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Fetched %d postings, wrote %d new rows.\n", summary.TotalFetched, summary.TotalWritten)

	sources := make([]pipeline.Source, 0, len(summary.Sources))
	for src := range summary.Sources {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	if len(sources) > 0 {
		b.WriteString("\nPer source:\n")
		for _, src := range sources {
			st := summary.Sources[src]
			fmt.Fprintf(&b, "  %-10s fetched=%d normalized=%d malformed=%d filtered=%d duplicates=%d written=%d\n",
				src, st.Fetched, st.Normalized, st.Malformed, st.FilteredOut, st.Duplicates, st.Written)
		}
	}

	if len(summary.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "  %-10s [%s] %s\n", f.Source, f.Class, f.Message)
		}
	}

	if summary.FatalError != "" {
		fmt.Fprintf(&b, "\nFATAL: %s\n", summary.FatalError)
	}
	return b.String()
}
