package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/popularity-vision/internal/types"
)

func TestTrendsCollectPerCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geo := r.URL.Query().Get("geo")
		switch geo {
		case "US":
			fmt.Fprint(w, `{"points":[{"date":"2026-08-01","value":10},{"date":"2026-08-02","value":20},{"date":"2026-08-03","value":40}]}`)
		case "IN":
			// Flat zero interest: dropped as a non-signal.
			fmt.Fprint(w, `{"points":[{"date":"2026-08-01","value":0},{"date":"2026-08-02","value":0}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tr := NewTrends(TrendsConfig{BaseURL: srv.URL, Countries: []string{"US", "IN"}},
		newTestClient(t, &sleepRecorder{}), nil)
	recs, err := tr.Collect(context.Background(), []string{"n8n slack"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records; want 1 (IN window is all zero): %+v", len(recs), recs)
	}
	r := recs[0]
	if r.Platform != types.PlatformTrends || r.Country != "US" || r.WorkflowName != "n8n slack" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.SourceURL != "" {
		t.Fatalf("trend records are synthetic and must have no source url; got %q", r.SourceURL)
	}
	if r.Metrics["trend_direction"] != "trending_up" {
		t.Fatalf("trend_direction=%v; want trending_up", r.Metrics["trend_direction"])
	}
	if r.Metrics["change_percent"] != 300.0 {
		t.Fatalf("change_percent=%v; want 300", r.Metrics["change_percent"])
	}
}

func TestTrendsAbandonsPairAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("geo") == "US" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"points":[{"date":"2026-08-01","value":5},{"date":"2026-08-02","value":5}]}`)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	tr := NewTrends(TrendsConfig{BaseURL: srv.URL, Countries: []string{"US", "DE"}},
		newTestClient(t, rec), nil)
	recs, err := tr.Collect(context.Background(), []string{"n8n"})
	if err != nil {
		t.Fatal(err)
	}
	// US exhausts its 3 attempts (2 backoff waits) and is abandoned; DE
	// still produces a record.
	if len(recs) != 1 || recs[0].Country != "DE" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if len(rec.waits) != 2 {
		t.Fatalf("backoff waits=%v; want 2", rec.waits)
	}
}
