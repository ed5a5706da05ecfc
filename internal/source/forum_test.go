package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourorg/popularity-vision/internal/seencache"
	"github.com/yourorg/popularity-vision/internal/types"
)

// sleepRecorder replaces real backoff waits and records their durations.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(t *testing.T, rec *sleepRecorder) *Client {
	t.Helper()
	return NewClient(ClientOptions{Sleep: rec.sleep})
}

func newSeen(t *testing.T) *seencache.Cache {
	t.Helper()
	c, err := seencache.Open("", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestForumCollectPaginatesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search.json"):
			page := r.URL.Query().Get("page")
			if page == "1" {
				fmt.Fprint(w, `{"topics":[
					{"id":1,"title":"Slack alert workflow","slug":"slack-alert"},
					{"id":2,"title":"Dead topic","slug":"dead"}],
					"grouped_search_result":{"more_full_page_results":true}}`)
				return
			}
			// Page 2 repeats topic 1 (same item on a later page) and ends.
			fmt.Fprint(w, `{"topics":[
				{"id":1,"title":"Slack alert workflow","slug":"slack-alert"},
				{"id":3,"title":"Sheets sync workflow","slug":"sheets-sync"}],
				"grouped_search_result":{"more_full_page_results":false}}`)
		case r.URL.Path == "/t/1.json":
			fmt.Fprint(w, `{"views":100,"reply_count":5,"like_count":15}`)
		case r.URL.Path == "/t/2.json":
			fmt.Fprint(w, `{"views":0,"reply_count":0,"like_count":0}`)
		case r.URL.Path == "/t/3.json":
			fmt.Fprint(w, `{"views":50,"reply_count":2,"like_count":3}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewForum(ForumConfig{BaseURL: srv.URL}, newTestClient(t, &sleepRecorder{}), newSeen(t), nil)
	recs, err := f.Collect(context.Background(), []string{"slack"})
	if err != nil {
		t.Fatal(err)
	}
	// Topic 2 has zero engagement and is dropped; topic 1 appears once
	// despite surfacing on both pages.
	if len(recs) != 2 {
		t.Fatalf("got %d records; want 2: %+v", len(recs), recs)
	}
	first := recs[0]
	if first.WorkflowName != "Slack alert workflow" || first.Platform != types.PlatformForum || first.Country != types.CountryGlobal {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Metrics["engagement_score"] != 0.2 {
		t.Fatalf("engagement_score=%v; want 0.2", first.Metrics["engagement_score"])
	}
	if want := srv.URL + "/t/slack-alert/1"; first.SourceURL != want {
		t.Fatalf("source url=%q; want %q", first.SourceURL, want)
	}
}

func TestForumRateLimitRecovery(t *testing.T) {
	var searchCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search.json"):
			if searchCalls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"topics":[{"id":7,"title":"Webhook workflow","slug":"webhook"}],
				"grouped_search_result":{"more_full_page_results":false}}`)
		case r.URL.Path == "/t/7.json":
			fmt.Fprint(w, `{"views":10,"reply_count":1,"like_count":0}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	f := NewForum(ForumConfig{BaseURL: srv.URL}, newTestClient(t, rec), newSeen(t), nil)
	recs, err := f.Collect(context.Background(), []string{"webhook"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records; want the page that succeeded on attempt 3", len(recs))
	}
	// Two throttled attempts, so exactly two escalating backoff waits.
	if len(rec.waits) != 2 {
		t.Fatalf("backoff waits=%v; want exactly 2", rec.waits)
	}
	if rec.waits[0] != 5*time.Second || rec.waits[1] != 10*time.Second {
		t.Fatalf("backoff waits=%v; want [5s 10s]", rec.waits)
	}
}

func TestForumAbandonsKeywordOnHardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		switch {
		case strings.HasPrefix(r.URL.Path, "/search.json") && q == "broken":
			w.WriteHeader(http.StatusForbidden)
		case strings.HasPrefix(r.URL.Path, "/search.json"):
			fmt.Fprint(w, `{"topics":[{"id":9,"title":"Email digest workflow","slug":"email"}],
				"grouped_search_result":{"more_full_page_results":false}}`)
		case r.URL.Path == "/t/9.json":
			fmt.Fprint(w, `{"views":30,"reply_count":0,"like_count":2}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	f := NewForum(ForumConfig{BaseURL: srv.URL}, newTestClient(t, rec), newSeen(t), nil)
	recs, err := f.Collect(context.Background(), []string{"broken", "email"})
	if err != nil {
		t.Fatal(err)
	}
	// "broken" is abandoned without retries; "email" still collects.
	if len(recs) != 1 || recs[0].WorkflowName != "Email digest workflow" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if len(rec.waits) != 0 {
		t.Fatalf("hard errors must not back off; waits=%v", rec.waits)
	}
}

func TestForumSkipsFailingItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search.json"):
			fmt.Fprint(w, `{"topics":[
				{"id":1,"title":"Broken detail","slug":"broken"},
				{"id":2,"title":"Healthy workflow","slug":"healthy"}],
				"grouped_search_result":{"more_full_page_results":false}}`)
		case r.URL.Path == "/t/1.json":
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path == "/t/2.json":
			fmt.Fprint(w, `{"views":40,"reply_count":4,"like_count":4}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewForum(ForumConfig{BaseURL: srv.URL}, newTestClient(t, &sleepRecorder{}), newSeen(t), nil)
	recs, err := f.Collect(context.Background(), []string{"workflow"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].WorkflowName != "Healthy workflow" {
		t.Fatalf("one item's failure must not abort the adapter; got %+v", recs)
	}
}

func TestForumRespectsPageLimit(t *testing.T) {
	var searchCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search.json"):
			n := searchCalls.Add(1)
			fmt.Fprintf(w, `{"topics":[{"id":%d,"title":"Topic %d","slug":"t%d"}],
				"grouped_search_result":{"more_full_page_results":true}}`, n, n, n)
		case strings.HasPrefix(r.URL.Path, "/t/"):
			fmt.Fprint(w, `{"views":10,"reply_count":1,"like_count":1}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := ForumConfig{BaseURL: srv.URL, Limits: types.Limits{MaxPagesPerKeyword: 2}}
	f := NewForum(cfg, newTestClient(t, &sleepRecorder{}), newSeen(t), nil)
	if _, err := f.Collect(context.Background(), []string{"anything"}); err != nil {
		t.Fatal(err)
	}
	if got := searchCalls.Load(); got != 2 {
		t.Fatalf("search pages fetched=%d; want 2", got)
	}
}
