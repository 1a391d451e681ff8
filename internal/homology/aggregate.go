package homology

import (
	"context"
	"errors"
	"time"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/ensembl"
	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/table"
	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/worker"
)

// Fetcher performs one homology lookup. *ensembl.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q ensembl.Query) ensembl.Outcome
}

// Params are the per-batch query settings shared by every row.
type Params struct {
	SourceSpecies string
	TargetSpecies string
	Relation      ensembl.Relation
	Sequence      ensembl.Sequence
}

// Status is the per-row processing status reported to observers.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Progress describes one finished row.
type Progress struct {
	// Index is the row position in the input.
	Index  int
	GeneID string
	Status Status
	Result Result
	// Failure is set when Status is StatusFailed.
	Failure  *ensembl.Failure
	Duration time.Duration
	// Completed counts rows finished so far, this one included.
	Completed int
	Total     int
}

// Observer receives progress events as rows finish. Returning an error stops
// the batch.
type Observer func(Progress) error

// Options tune batch execution.
type Options struct {
	Workers        int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	Observer       Observer
}

// Aggregator runs the per-row fetch and extract cycle over a column of gene ids.
type Aggregator struct {
	fetcher Fetcher
	opts    Options
}

// NewAggregator returns an Aggregator that fetches through f.
func NewAggregator(f Fetcher, opts Options) *Aggregator {
	return &Aggregator{fetcher: f, opts: opts}
}

type rowOutcome struct {
	status   Status
	result   Result
	failure  *ensembl.Failure
	duration time.Duration
}

// Run processes genes and returns exactly one Result per cell, in input order.
//
// Only text cells are looked up; other cells yield the zero Result without a
// remote call. A failed lookup also yields the zero Result and is reported to
// the observer. The error is non-nil only if ctx is cancelled or the observer
// fails.
func (a *Aggregator) Run(ctx context.Context, genes []table.Cell, p Params) ([]Result, error) {
	processor := core.ProcessFunc[table.Cell, rowOutcome](func(reqCtx context.Context, cell table.Cell) (rowOutcome, error) {
		if !cell.IsText() {
			return rowOutcome{status: StatusSkipped}, nil
		}
		start := time.Now()
		q := ensembl.BuildQuery(p.SourceSpecies, cell.Value, p.Relation, p.Sequence, p.TargetSpecies)
		out := a.fetcher.Fetch(reqCtx, q)
		row := rowOutcome{duration: time.Since(start)}
		body, ok := out.Body()
		if !ok {
			row.status = StatusFailed
			row.failure = out.Failure()
			return row, nil
		}
		row.status = StatusOK
		row.result = Extract(body, p.TargetSpecies)
		return row, nil
	})

	completed := 0
	onResult := func(res worker.Result[table.Cell, rowOutcome]) error {
		completed++
		if a.opts.Observer == nil {
			return nil
		}
		row := settle(res)
		return a.opts.Observer(Progress{
			Index:     res.Index,
			GeneID:    res.Input.Value,
			Status:    row.status,
			Result:    row.result,
			Failure:   row.failure,
			Duration:  row.duration,
			Completed: completed,
			Total:     len(genes),
		})
	}

	out, err := worker.ProcessAllWithCallback(ctx, genes, processor.Process, onResult, worker.Options{
		Workers:        a.opts.Workers,
		RequestTimeout: a.opts.RequestTimeout,
		RateLimitRPS:   a.opts.RateLimitRPS,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(out))
	for i, res := range out {
		results[i] = settle(res).result
	}
	return results, nil
}

// settle folds a worker-level error (e.g. the rate limiter giving up) into a
// failed row.
func settle(res worker.Result[table.Cell, rowOutcome]) rowOutcome {
	if res.Err == nil {
		return res.Output
	}
	kind := ensembl.FailureUnclassified
	if errors.Is(res.Err, context.DeadlineExceeded) {
		kind = ensembl.FailureTimeout
	}
	return rowOutcome{
		status: StatusFailed,
		failure: &ensembl.Failure{
			Kind:    kind,
			GeneID:  res.Input.Value,
			Message: res.Err.Error(),
			Err:     res.Err,
		},
	}
}
