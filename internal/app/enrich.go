package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/homology"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/journal"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/metrics"
	localio "github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/table"
)

// runSinks are the optional per-row recorders of a run.
type runSinks struct {
	journal    *journal.Journal
	journalCtx context.Context
	metrics    *metrics.Recorder
}

func enrich(
	ctx context.Context,
	log *zap.Logger,
	opts Options,
	fetcher homology.Fetcher,
	in table.Table,
	genes []table.Cell,
	sinks *runSinks,
	summary *Summary,
) error {
	observer := func(p homology.Progress) error {
		fields := []zap.Field{
			zap.Int("row", p.Index),
			zap.String("gene_id", p.GeneID),
			zap.Int("completed", p.Completed),
			zap.Int("total", p.Total),
		}
		switch p.Status {
		case homology.StatusOK:
			summary.OK++
			log.Info("row processed",
				append(fields,
					zap.Int("count", p.Result.Count),
					zap.Int("matched", len(p.Result.IDs)),
					zap.Duration("duration", p.Duration.Round(time.Millisecond)),
				)...)
		case homology.StatusFailed:
			summary.Failed++
			if p.Failure != nil {
				fields = append(fields,
					zap.String("kind", string(p.Failure.Kind)),
					zap.Int("status_code", p.Failure.StatusCode),
					zap.String("error", p.Failure.Message),
				)
			}
			log.Warn("row failed", fields...)
		case homology.StatusSkipped:
			summary.Skipped++
			log.Debug("row skipped: gene id is not text", fields...)
		}

		if sinks.metrics != nil {
			sinks.metrics.Observe(p)
		}
		if sinks.journal != nil {
			if err := sinks.journal.Record(sinks.journalCtx, summary.RunID, p); err != nil {
				return fmt.Errorf("journal record row %d: %w", p.Index, err)
			}
		}
		return nil
	}

	enrichStart := time.Now()
	agg := homology.NewAggregator(newTracedFetcher(fetcher, log), homology.Options{
		Workers:        opts.Workers,
		RequestTimeout: opts.RequestTimeout,
		RateLimitRPS:   opts.RateLimitRPS,
		Observer:       observer,
	})
	results, err := agg.Run(ctx, genes, opts.Params)
	if err != nil {
		return fmt.Errorf("enrich rows: %w", err)
	}
	log.Info("enrichment complete",
		zap.Int("produced", len(results)),
		zap.Int("ok", summary.OK),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(enrichStart).Round(time.Millisecond)),
	)

	out, err := homology.Merge(in, results, opts.Params.Relation)
	if err != nil {
		return err
	}

	writeStart := time.Now()
	sink := localio.Sink{Path: opts.OutputPath, Options: localio.WriteOptions{Index: !opts.NoIndex}}
	if err := sink.Store(ctx, out); err != nil {
		return fmt.Errorf("write output %s: %w", opts.OutputPath, err)
	}
	log.Info("wrote output table",
		zap.String("path", opts.OutputPath),
		zap.Int("rows", out.Len()),
		zap.Duration("duration", time.Since(writeStart).Round(time.Millisecond)),
	)
	return nil
}
