package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yourorg/popularity-vision/internal/types"
)

// IngestionWorkflow runs one popularity ingestion pass: collect from every
// source concurrently, then dedupe and upsert in a single persist step.
// A failed collect activity contributes zero records instead of failing
// the run; only the persist step is fatal.
func IngestionWorkflow(ctx workflow.Context, params types.IngestionParams) (types.RunSummary, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	summary := types.RunSummary{
		Mode:         params.Mode,
		DryRun:       params.DryRun,
		Collected:    make(map[string]int),
		SourceErrors: make(map[string]string),
		StartedAt:    workflow.Now(ctx).UTC(),
	}

	limits, windowDays := modeSettings(params.Mode)

	// fan-out collection, one activity per source
	futures := make([]workflow.Future, len(types.PriorityOrder))
	for i, platform := range types.PriorityOrder {
		cp := types.CollectParams{Platform: platform, Limits: limits, TrendsWindowDays: windowDays}
		futures[i] = workflow.ExecuteActivity(ctx, "Activities.CollectSource", cp)
	}

	// gather in priority order so the merged batch is deterministic
	var aggregate []types.WorkflowRecord
	for i, platform := range types.PriorityOrder {
		var res types.CollectResult
		if err := futures[i].Get(ctx, &res); err != nil {
			summary.SourceErrors[platform] = err.Error()
			summary.Collected[platform] = 0
			continue
		}
		summary.Collected[platform] = len(res.Records)
		if res.Error != "" {
			summary.SourceErrors[platform] = res.Error
		}
		aggregate = append(aggregate, res.Records...)
	}

	pp := types.PersistParams{Records: aggregate, DryRun: params.DryRun}
	var pr types.PersistResult
	if err := workflow.ExecuteActivity(ctx, "Activities.PersistRecords", pp).Get(ctx, &pr); err != nil {
		summary.State = "failed"
		summary.FinishedAt = workflow.Now(ctx).UTC()
		return summary, err
	}

	summary.Duplicates = pr.Duplicates
	summary.Written = pr.Written
	summary.WouldWrite = pr.WouldWrite
	summary.State = "done"
	summary.FinishedAt = workflow.Now(ctx).UTC()
	return summary, nil
}

// modeSettings maps the run mode to collection bounds. "test" keeps runs
// short for smoke checks; "deep" widens the trends window.
func modeSettings(mode string) (types.Limits, int) {
	switch mode {
	case "test":
		return types.Limits{MaxKeywords: 3, MaxPagesPerKeyword: 2}, 0
	case "deep":
		return types.Limits{}, 90
	default:
		return types.Limits{}, 0
	}
}
