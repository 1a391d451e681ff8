package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/ensembl"
	"github.com/shpitdev/ensembl-homology-pipeline/internal/homology"
)

// tracedFetcher logs each lookup request and its outcome at debug level.
type tracedFetcher struct {
	next homology.Fetcher
	log  *zap.Logger
}

func newTracedFetcher(next homology.Fetcher, log *zap.Logger) *tracedFetcher {
	return &tracedFetcher{next: next, log: log}
}

func (t *tracedFetcher) Fetch(ctx context.Context, q ensembl.Query) ensembl.Outcome {
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.log.Debug("homology request",
		zap.String("gene_id", q.GeneID),
		zap.String("path", q.Path()),
		zap.String("query", q.Values().Encode()),
		zap.String("deadline_in", deadlineIn),
	)

	start := time.Now()
	out := t.next.Fetch(ctx, q)
	elapsed := time.Since(start).Round(time.Millisecond)

	if f := out.Failure(); f != nil {
		t.log.Debug("homology response",
			zap.String("gene_id", q.GeneID),
			zap.Duration("duration", elapsed),
			zap.String("status", "error"),
			zap.String("kind", string(f.Kind)),
			zap.Int("status_code", f.StatusCode),
		)
		return out
	}
	t.log.Debug("homology response",
		zap.String("gene_id", q.GeneID),
		zap.Duration("duration", elapsed),
		zap.String("status", "ok"),
	)
	return out
}
