package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/config"
	"github.com/yourorg/popularity-vision/internal/db"
	"github.com/yourorg/popularity-vision/internal/keywords"
	"github.com/yourorg/popularity-vision/internal/metrics"
	"github.com/yourorg/popularity-vision/internal/pipeline"
	"github.com/yourorg/popularity-vision/internal/seencache"
	"github.com/yourorg/popularity-vision/internal/source"
	"github.com/yourorg/popularity-vision/internal/storage"
	"github.com/yourorg/popularity-vision/internal/types"
)

type Activities struct {
	cfg   config.Config
	store storage.ObjectStore
	repo  db.WorkflowRepository
	seen  *seencache.Cache
	log   *zap.Logger
}

func New(cfg config.Config, store storage.ObjectStore, repo db.WorkflowRepository, seen *seencache.Cache, log *zap.Logger) *Activities {
	if log == nil {
		log = zap.NewNop()
	}
	return &Activities{cfg: cfg, store: store, repo: repo, seen: seen, log: log}
}

// CollectSource runs a single source adapter over the configured keyword
// list. A total source failure is reported in the result rather than as an
// activity error, so the run continues with zero records from this source.
func (a *Activities) CollectSource(ctx context.Context, p types.CollectParams) (types.CollectResult, error) {
	terms := keywords.NewProvider(a.store, a.cfg.KeywordsURI, a.log).Load(ctx)
	terms = p.Limits.CapTerms(terms)

	adapter := source.ForPlatform(p.Platform, source.BuildOptions{
		Config:           a.cfg,
		Limits:           p.Limits,
		TrendsWindowDays: p.TrendsWindowDays,
		Seen:             a.seen,
		Logger:           a.log,
	})

	// Collection can be slow; keep the server updated while it runs.
	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(30 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				activity.RecordHeartbeat(ctx, p.Platform)
			}
		}
	}()

	records, err := adapter.Collect(ctx, terms)
	res := types.CollectResult{Platform: p.Platform, Records: records}
	metrics.RecordsCollected.WithLabelValues(p.Platform).Add(float64(len(records)))
	if err != nil {
		if ctx.Err() != nil {
			return types.CollectResult{}, err
		}
		res.Records = nil
		res.Error = err.Error()
		metrics.SourceFailures.WithLabelValues(p.Platform).Inc()
		a.log.Warn("source degraded to zero records",
			zap.String("platform", p.Platform), zap.Error(err))
	}
	return res, nil
}

// PersistRecords deduplicates the merged batch and applies it to the store
// in one transaction. With DryRun set the store is never touched.
func (a *Activities) PersistRecords(ctx context.Context, p types.PersistParams) (types.PersistResult, error) {
	unique, duplicates := pipeline.Dedupe(p.Records)
	metrics.DuplicatesRemoved.Add(float64(duplicates))
	activity.RecordHeartbeat(ctx, len(unique))

	if p.DryRun {
		return types.PersistResult{Duplicates: duplicates, WouldWrite: len(unique)}, nil
	}

	written, err := a.repo.UpsertBatch(ctx, unique)
	if err != nil {
		metrics.RunFailures.Inc()
		return types.PersistResult{}, err
	}
	metrics.RecordsWritten.Add(float64(written))
	return types.PersistResult{Duplicates: duplicates, Written: written}, nil
}
