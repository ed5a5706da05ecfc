package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/source"
	"github.com/yourorg/popularity-vision/internal/types"
)

func newTestOrchestrator(adapters []fakeAdapter, w Writer) *Orchestrator {
	as := make([]source.Adapter, len(adapters))
	for i := range adapters {
		as[i] = &adapters[i]
	}
	return NewOrchestrator(as, &fakeTerms{terms: []string{"n8n"}}, w, zap.NewNop())
}

type fakeAdapter struct {
	platform string
	records  []types.WorkflowRecord
	err      error
}

func (f *fakeAdapter) Platform() string { return f.platform }

func (f *fakeAdapter) Collect(ctx context.Context, terms []string) ([]types.WorkflowRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeTerms struct{ terms []string }

func (f *fakeTerms) Load(ctx context.Context) []string { return f.terms }

type fakeWriter struct {
	calls   int
	got     []types.WorkflowRecord
	err     error
	written int
}

func (f *fakeWriter) UpsertBatch(ctx context.Context, records []types.WorkflowRecord) (int, error) {
	f.calls++
	f.got = records
	if f.err != nil {
		return 0, f.err
	}
	f.written = len(records)
	return len(records), nil
}

func named(platform, name string) types.WorkflowRecord {
	return types.WorkflowRecord{
		WorkflowName: name,
		Platform:     platform,
		Country:      types.CountryGlobal,
		Metrics:      map[string]any{"views": int64(1)},
	}
}

func TestRunHappyPath(t *testing.T) {
	adapters := []fakeAdapter{
		{platform: types.PlatformForum, records: []types.WorkflowRecord{named(types.PlatformForum, "f1")}},
		{platform: types.PlatformVideo, records: []types.WorkflowRecord{named(types.PlatformVideo, "v1"), named(types.PlatformVideo, "v2")}},
		{platform: types.PlatformTrends, records: []types.WorkflowRecord{named(types.PlatformTrends, "t1")}},
	}
	w := &fakeWriter{}
	o := newTestOrchestrator(adapters, w)

	sum, err := o.Run(context.Background(), RunOptions{Mode: "full"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.State != StateDone {
		t.Fatalf("state = %q, want %q", sum.State, StateDone)
	}
	if sum.Written != 4 || w.calls != 1 {
		t.Fatalf("written = %d (writer calls %d), want 4 (1)", sum.Written, w.calls)
	}
	if sum.Collected[types.PlatformVideo] != 2 {
		t.Fatalf("collected[video] = %d, want 2", sum.Collected[types.PlatformVideo])
	}
	// Buffered output is concatenated in adapter priority order.
	wantOrder := []string{"f1", "v1", "v2", "t1"}
	for i, name := range wantOrder {
		if w.got[i].WorkflowName != name {
			t.Fatalf("record %d = %q, want %q", i, w.got[i].WorkflowName, name)
		}
	}
}

func TestRunDryRunSkipsWriter(t *testing.T) {
	adapters := []fakeAdapter{
		{platform: types.PlatformForum, records: []types.WorkflowRecord{
			named(types.PlatformForum, "a"),
			named(types.PlatformForum, "a"), // collapses
			named(types.PlatformForum, "b"),
		}},
	}
	w := &fakeWriter{}
	o := newTestOrchestrator(adapters, w)

	sum, err := o.Run(context.Background(), RunOptions{Mode: "test", DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.State != StateDone || sum.WouldWrite != 2 || sum.Duplicates != 1 {
		t.Fatalf("summary = %+v, want done with wouldWrite 2, duplicates 1", sum)
	}
	if w.calls != 0 {
		t.Fatal("dry run must not touch the store")
	}
}

func TestRunSourceFailureDoesNotFailRun(t *testing.T) {
	adapters := []fakeAdapter{
		{platform: types.PlatformForum, err: errors.New("search endpoint returned 403")},
		{platform: types.PlatformVideo, records: []types.WorkflowRecord{named(types.PlatformVideo, "v1")}},
	}
	w := &fakeWriter{}
	o := newTestOrchestrator(adapters, w)

	sum, err := o.Run(context.Background(), RunOptions{Mode: "full"})
	if err != nil {
		t.Fatalf("a single source failure must not fail the run: %v", err)
	}
	if sum.State != StateDone || sum.Written != 1 {
		t.Fatalf("summary = %+v, want done with 1 written", sum)
	}
	if sum.Collected[types.PlatformForum] != 0 {
		t.Fatalf("failed source must contribute zero records, got %d", sum.Collected[types.PlatformForum])
	}
	if sum.SourceErrors[types.PlatformForum] == "" {
		t.Fatal("failed source must be recorded in SourceErrors")
	}
	if _, ok := sum.SourceErrors[types.PlatformVideo]; ok {
		t.Fatal("healthy source must not appear in SourceErrors")
	}
}

func TestRunWriteFailureFailsRun(t *testing.T) {
	adapters := []fakeAdapter{
		{platform: types.PlatformForum, records: []types.WorkflowRecord{named(types.PlatformForum, "f1")}},
	}
	w := &fakeWriter{err: errors.New("connection refused")}
	o := newTestOrchestrator(adapters, w)

	sum, err := o.Run(context.Background(), RunOptions{Mode: "full"})
	if err == nil {
		t.Fatal("write failure must fail the run")
	}
	if sum.State != StateFailed {
		t.Fatalf("state = %q, want %q", sum.State, StateFailed)
	}
}

func TestRunCancelledContext(t *testing.T) {
	adapters := []fakeAdapter{
		{platform: types.PlatformForum, records: []types.WorkflowRecord{named(types.PlatformForum, "f1")}},
	}
	w := &fakeWriter{}
	o := newTestOrchestrator(adapters, w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := o.Run(ctx, RunOptions{Mode: "full"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sum.State != StateFailed || w.calls != 0 {
		t.Fatalf("cancelled run must fail before writing; state %q, writer calls %d", sum.State, w.calls)
	}
}

func TestRunCrossSourceDedup(t *testing.T) {
	// Same natural key from two adapters: the later source in priority
	// order wins the payload.
	forumRec := named(types.PlatformForum, "shared")
	forumRec.Platform = types.PlatformForum
	dup := forumRec
	dup.Metrics = map[string]any{"views": int64(99)}
	adapters := []fakeAdapter{
		{platform: types.PlatformForum, records: []types.WorkflowRecord{forumRec}},
		{platform: types.PlatformVideo, records: []types.WorkflowRecord{dup}},
	}
	w := &fakeWriter{}
	o := newTestOrchestrator(adapters, w)

	sum, err := o.Run(context.Background(), RunOptions{Mode: "full"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Duplicates != 1 || sum.Written != 1 {
		t.Fatalf("summary = %+v, want 1 duplicate, 1 written", sum)
	}
	if w.got[0].Metrics["views"] != int64(99) {
		t.Fatalf("later source must win: %+v", w.got[0].Metrics)
	}
}
