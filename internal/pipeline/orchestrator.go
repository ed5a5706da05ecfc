package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/metrics"
	"github.com/yourorg/popularity-vision/internal/source"
	"github.com/yourorg/popularity-vision/internal/types"
)

// Run states. Failed is reachable from any state; in practice only the
// write phase fails the run, since collection degrades per source and
// deduplication is pure.
const (
	StateCollecting    = "collecting"
	StateDeduplicating = "deduplicating"
	StateWriting       = "writing"
	StateDone          = "done"
	StateFailed        = "failed"
)

// Writer is the single write path into the persistent store. The whole
// batch is applied in one transaction or not at all.
type Writer interface {
	UpsertBatch(ctx context.Context, records []types.WorkflowRecord) (int, error)
}

// RunOptions configure one orchestration pass.
type RunOptions struct {
	Mode   string
	DryRun bool
}

// Orchestrator sequences the source adapters, aggregates their buffered
// output in priority order, deduplicates, and upserts.
type Orchestrator struct {
	adapters []source.Adapter // fixed priority order
	terms    TermProvider
	writer   Writer
	log      *zap.Logger
}

// TermProvider supplies the ordered keyword list shared by all adapters.
type TermProvider interface {
	Load(ctx context.Context) []string
}

func NewOrchestrator(adapters []source.Adapter, terms TermProvider, writer Writer, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{adapters: adapters, terms: terms, writer: writer, log: log.Named("orchestrator")}
}

// Run executes one pass: Collecting -> Deduplicating -> Writing -> Done.
// A single source's total failure contributes zero records and is noted in
// the summary; only a write failure (or cancellation) fails the run.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (types.RunSummary, error) {
	summary := types.RunSummary{
		Mode:         opts.Mode,
		DryRun:       opts.DryRun,
		State:        StateCollecting,
		Collected:    make(map[string]int),
		SourceErrors: make(map[string]string),
		StartedAt:    time.Now().UTC(),
	}

	terms := o.terms.Load(ctx)
	o.log.Info("run started",
		zap.String("mode", opts.Mode), zap.Bool("dryRun", opts.DryRun), zap.Int("keywords", len(terms)))

	aggregate := o.collect(ctx, terms, &summary)
	if err := ctx.Err(); err != nil {
		return o.fail(summary, err)
	}

	summary.State = StateDeduplicating
	unique, duplicates := Dedupe(aggregate)
	summary.Duplicates = duplicates
	metrics.DuplicatesRemoved.Add(float64(duplicates))
	o.log.Info("deduplicated",
		zap.Int("collected", len(aggregate)), zap.Int("duplicates", duplicates), zap.Int("unique", len(unique)))

	if opts.DryRun {
		summary.WouldWrite = len(unique)
		summary.State = StateDone
		summary.FinishedAt = time.Now().UTC()
		o.log.Info("dry run complete", zap.Int("wouldWrite", summary.WouldWrite))
		return summary, nil
	}

	summary.State = StateWriting
	written, err := o.writer.UpsertBatch(ctx, unique)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.Written = written
	metrics.RecordsWritten.Add(float64(written))

	summary.State = StateDone
	summary.FinishedAt = time.Now().UTC()
	o.log.Info("run complete",
		zap.Int("written", summary.Written),
		zap.Int("duplicates", summary.Duplicates),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)))
	return summary, nil
}

// collect runs all adapters concurrently, buffers each adapter's full
// output, and concatenates in the fixed priority order so concurrent
// execution cannot reorder records across sources.
func (o *Orchestrator) collect(ctx context.Context, terms []string, summary *types.RunSummary) []types.WorkflowRecord {
	results := make([]types.CollectResult, len(o.adapters))
	var wg sync.WaitGroup
	for i, a := range o.adapters {
		wg.Add(1)
		go func(i int, a source.Adapter) {
			defer wg.Done()
			recs, err := a.Collect(ctx, terms)
			res := types.CollectResult{Platform: a.Platform(), Records: recs}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
		}(i, a)
	}
	wg.Wait()

	var aggregate []types.WorkflowRecord
	for _, res := range results {
		summary.Collected[res.Platform] = len(res.Records)
		metrics.RecordsCollected.WithLabelValues(res.Platform).Add(float64(len(res.Records)))
		if res.Error != "" {
			// Distinguishes "failed" from "legitimately found nothing".
			summary.SourceErrors[res.Platform] = res.Error
			metrics.SourceFailures.WithLabelValues(res.Platform).Inc()
			o.log.Warn("source degraded to zero records",
				zap.String("platform", res.Platform), zap.String("error", res.Error))
		}
		aggregate = append(aggregate, res.Records...)
	}
	return aggregate
}

func (o *Orchestrator) fail(summary types.RunSummary, err error) (types.RunSummary, error) {
	summary.State = StateFailed
	summary.FinishedAt = time.Now().UTC()
	metrics.RunFailures.Inc()
	o.log.Error("run failed", zap.String("state", summary.State), zap.Error(err))
	return summary, err
}
