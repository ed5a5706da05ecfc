package types

import "time"

// Platform tags stored alongside every record. The triple
// (WorkflowName, Platform, Country) is the natural key in the store.
const (
	PlatformForum  = "Discourse"
	PlatformVideo  = "YouTube"
	PlatformTrends = "GoogleTrends"
)

// CountryGlobal marks records from sources without geo targeting.
const CountryGlobal = "Global"

// PriorityOrder is the fixed merge order for multi-source runs. When adapters
// run concurrently their buffered output is concatenated in this order before
// deduplication, so repeated runs are deterministic.
var PriorityOrder = []string{PlatformForum, PlatformVideo, PlatformTrends}

// WorkflowRecord is one normalized popularity sample for a piece of
// workflow-automation content discovered on a single platform.
type WorkflowRecord struct {
	WorkflowName string         `json:"workflow_name"`
	Platform     string         `json:"platform"`
	Country      string         `json:"country"`
	Metrics      map[string]any `json:"popularity_metrics"`
	// SourceURL is empty for synthetic records (e.g. trend keywords) that
	// have no canonical page.
	SourceURL   string    `json:"source_url,omitempty"`
	CollectedAt time.Time `json:"collected_at"`
}

// Key returns the natural key used for deduplication and upserts.
func (r WorkflowRecord) Key() string {
	return r.WorkflowName + "\x1f" + r.Platform + "\x1f" + r.Country
}

// Limits bound a collection run; zero values mean unbounded.
type Limits struct {
	MaxKeywords        int `json:"max_keywords"`
	MaxPagesPerKeyword int `json:"max_pages_per_keyword"`
}

// CapTerms applies MaxKeywords to an ordered term list.
func (l Limits) CapTerms(terms []string) []string {
	if l.MaxKeywords > 0 && len(terms) > l.MaxKeywords {
		return terms[:l.MaxKeywords]
	}
	return terms
}

// RunSummary reports one orchestration pass. It is never persisted.
type RunSummary struct {
	Mode         string            `json:"mode"`
	DryRun       bool              `json:"dry_run"`
	State        string            `json:"state"`
	Collected    map[string]int    `json:"collected"` // platform -> records emitted
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Duplicates   int               `json:"duplicates"`
	Written      int               `json:"written"`
	WouldWrite   int               `json:"would_write,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// TotalCollected sums per-source counts.
func (s RunSummary) TotalCollected() int {
	n := 0
	for _, c := range s.Collected {
		n += c
	}
	return n
}

// IngestionParams is the input of the Temporal ingestion workflow.
type IngestionParams struct {
	Mode   string `json:"mode"` // full | test | deep
	DryRun bool   `json:"dry_run"`
}

// CollectParams instructs the collect activity to run a single source.
type CollectParams struct {
	Platform string `json:"platform"`
	Limits   Limits `json:"limits"`
	// TrendsWindowDays widens the interest window for deep runs.
	TrendsWindowDays int `json:"trends_window_days,omitempty"`
}

// CollectResult is the buffered output of one source adapter.
type CollectResult struct {
	Platform string           `json:"platform"`
	Records  []WorkflowRecord `json:"records"`
	// Error carries a source-level total failure; the run continues with
	// zero records from this source.
	Error string `json:"error,omitempty"`
}

// PersistParams is the input of the persist activity: the aggregate of all
// sources in priority order, ready for dedup and upsert.
type PersistParams struct {
	Records []WorkflowRecord `json:"records"`
	DryRun  bool             `json:"dry_run"`
}

// PersistResult reports the write phase.
type PersistResult struct {
	Duplicates int `json:"duplicates"`
	Written    int `json:"written"`
	WouldWrite int `json:"would_write,omitempty"`
}
