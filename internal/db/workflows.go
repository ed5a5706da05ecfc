package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourorg/popularity-vision/internal/types"
)

// Workflow represents a row in the workflows table.
type Workflow struct {
	ID                int64
	WorkflowName      string
	Platform          string
	Country           string
	PopularityMetrics map[string]any
	SourceURL         *string
	LastUpdated       time.Time
}

// WorkflowFilter narrows List results. Empty fields match everything.
type WorkflowFilter struct {
	Platform string
	Country  string
	Limit    int
	Offset   int
}

// WorkflowRepository is the write path for ingestion runs and the read
// path for the query API.
type WorkflowRepository interface {
	// UpsertBatch applies the whole batch in one transaction: rows are
	// inserted, and rows whose (workflow_name, platform, country) already
	// exists are updated in place. Returns the number of rows applied.
	UpsertBatch(ctx context.Context, records []types.WorkflowRecord) (int, error)
	Get(ctx context.Context, name, platform, country string) (Workflow, error)
	List(ctx context.Context, f WorkflowFilter) ([]Workflow, error)
	// Count returns the total row count and how many rows were updated
	// within the given window. The health monitor uses this pair.
	Count(ctx context.Context, updatedSince time.Time) (total int64, recent int64, err error)
}

// NewWorkflowRepo returns a repository bound to the pool.
func NewWorkflowRepo(p *Pool) WorkflowRepository { return &workflowRepo{p: p} }

type workflowRepo struct{ p *Pool }

const upsertWorkflowQuery = `
insert into workflows (workflow_name, platform, country, popularity_metrics, source_url, last_updated)
values ($1, $2, $3, $4, $5, now())
on conflict (workflow_name, platform, country)
do update set popularity_metrics = excluded.popularity_metrics,
              source_url         = excluded.source_url,
              last_updated       = now()`

func (r *workflowRepo) UpsertBatch(ctx context.Context, records []types.WorkflowRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.p.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	applied := 0
	for _, rec := range records {
		metrics, err := json.Marshal(rec.Metrics)
		if err != nil {
			return 0, fmt.Errorf("encode metrics for %q: %w", rec.WorkflowName, err)
		}
		var sourceURL *string
		if rec.SourceURL != "" {
			sourceURL = &rec.SourceURL
		}
		if _, err := tx.Exec(ctx, upsertWorkflowQuery,
			rec.WorkflowName, rec.Platform, rec.Country, metrics, sourceURL); err != nil {
			return 0, mapPgErr(err)
		}
		applied++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return applied, nil
}

func (r *workflowRepo) Get(ctx context.Context, name, platform, country string) (Workflow, error) {
	const q = `select id, workflow_name, platform, country, popularity_metrics, source_url, last_updated
from workflows where workflow_name=$1 and platform=$2 and country=$3`
	w, err := scanWorkflow(r.p.QueryRow(ctx, q, name, platform, country))
	if err != nil {
		return Workflow{}, mapRowErr(err)
	}
	return w, nil
}

func (r *workflowRepo) List(ctx context.Context, f WorkflowFilter) ([]Workflow, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("select id, workflow_name, platform, country, popularity_metrics, source_url, last_updated from workflows")
	var where []string
	if f.Platform != "" {
		args = append(args, f.Platform)
		where = append(where, fmt.Sprintf("platform = $%d", len(args)))
	}
	if f.Country != "" {
		args = append(args, f.Country)
		where = append(where, fmt.Sprintf("country = $%d", len(args)))
	}
	if len(where) > 0 {
		sb.WriteString(" where ")
		sb.WriteString(strings.Join(where, " and "))
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" order by last_updated desc, id asc limit $%d", len(args)))
	args = append(args, offset)
	sb.WriteString(fmt.Sprintf(" offset $%d", len(args)))

	rows, err := r.p.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *workflowRepo) Count(ctx context.Context, updatedSince time.Time) (int64, int64, error) {
	const q = `select count(*), count(*) filter (where last_updated >= $1) from workflows`
	var total, recent int64
	if err := r.p.QueryRow(ctx, q, updatedSince).Scan(&total, &recent); err != nil {
		return 0, 0, err
	}
	return total, recent, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (Workflow, error) {
	var (
		w   Workflow
		raw []byte
	)
	if err := row.Scan(&w.ID, &w.WorkflowName, &w.Platform, &w.Country, &raw, &w.SourceURL, &w.LastUpdated); err != nil {
		return Workflow{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &w.PopularityMetrics); err != nil {
			return Workflow{}, fmt.Errorf("decode metrics: %w", err)
		}
	}
	return w, nil
}

// mapPgErr maps common pg errors to friendly domain errors
func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505": // unique_violation
			return ErrConflict
		}
	}
	return err
}

// mapRowErr translates not found cases to ErrNotFound
func mapRowErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
