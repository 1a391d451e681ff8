// Package app wires the local file adapters, the Ensembl client and the
// homology aggregator into a single enrichment run.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/homology"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/journal"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/logger"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/metrics"
	localio "github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/io/local"
)

// Options configures one local run.
type Options struct {
	InputPath  string
	OutputPath string
	// Sheet selects the xlsx worksheet; see local.ReadXLSX for the default.
	Sheet  string
	Column string
	// NoIndex drops the leading row-index column from the output.
	NoIndex bool

	Params homology.Params

	Workers        int
	RequestTimeout time.Duration
	RateLimitRPS   float64

	// JournalPath enables the SQLite run journal.
	JournalPath string
	// MetricsFile enables the Prometheus textfile export.
	MetricsFile string
}

// Summary reports what a run did.
type Summary struct {
	RunID    string
	Rows     int
	OK       int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// RunLocal reads a local xlsx/csv table of gene ids, looks up homologies for
// each row through fetcher and writes the enriched table as CSV.
//
// Per-row lookup failures are logged and counted but never fail the run.
func RunLocal(ctx context.Context, opts Options, fetcher homology.Fetcher) (Summary, error) {
	runID := uuid.New().String()
	ctx, log := logger.With(ctx, zap.String("run_id", runID))
	runStart := time.Now()
	summary := Summary{RunID: runID}

	log.Info("local run start",
		zap.String("input", opts.InputPath),
		zap.String("output", opts.OutputPath),
		zap.String("species", opts.Params.SourceSpecies),
		zap.String("target_species", opts.Params.TargetSpecies),
		zap.String("type", string(opts.Params.Relation)),
		zap.String("sequence", string(opts.Params.Sequence)),
		zap.Int("workers", opts.Workers),
		zap.Duration("request_timeout", opts.RequestTimeout),
		zap.Float64("rate_limit_rps", opts.RateLimitRPS),
	)

	readStart := time.Now()
	in, err := localio.Source{Path: opts.InputPath, Sheet: opts.Sheet}.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load input %s: %w", opts.InputPath, err)
	}
	genes, err := in.Column(opts.Column)
	if err != nil {
		return summary, fmt.Errorf("input %s: %w", opts.InputPath, err)
	}
	summary.Rows = len(genes)
	log.Info("loaded input table",
		zap.Int("rows", in.Len()),
		zap.Int("columns", len(in.Columns)),
		zap.Duration("duration", time.Since(readStart).Round(time.Millisecond)),
	)

	// Journal writes outlive cancellation so interrupted runs are still recorded.
	jctx := context.WithoutCancel(ctx)
	var jr *journal.Journal
	if opts.JournalPath != "" {
		jr, err = journal.Open(jctx, opts.JournalPath)
		if err != nil {
			return summary, err
		}
		defer func() {
			_ = jr.Close()
		}()
		err = jr.StartRun(jctx, &journal.Run{
			ID:            runID,
			InputPath:     opts.InputPath,
			OutputPath:    opts.OutputPath,
			SourceSpecies: opts.Params.SourceSpecies,
			TargetSpecies: opts.Params.TargetSpecies,
			Relation:      string(opts.Params.Relation),
			Sequence:      string(opts.Params.Sequence),
			StartedAt:     runStart,
		})
		if err != nil {
			return summary, fmt.Errorf("journal start run: %w", err)
		}
	}

	var rec *metrics.Recorder
	if opts.MetricsFile != "" {
		rec = metrics.New()
	}

	err = enrich(ctx, log, opts, fetcher, in, genes, &runSinks{journal: jr, journalCtx: jctx, metrics: rec}, &summary)
	summary.Duration = time.Since(runStart)

	if jr != nil {
		if jerr := jr.FinishRun(jctx, runID, err); jerr != nil {
			log.Warn("journal finish run failed", zap.Error(jerr))
		}
	}
	if rec != nil {
		rec.Finish(time.Now())
		if merr := rec.WriteTextfile(opts.MetricsFile); merr != nil {
			log.Warn("metrics export failed", zap.String("path", opts.MetricsFile), zap.Error(merr))
		}
	}
	if err != nil {
		return summary, err
	}

	log.Info("local run complete",
		zap.Int("rows", summary.Rows),
		zap.Int("ok", summary.OK),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration.Round(time.Millisecond)),
	)
	return summary, nil
}
