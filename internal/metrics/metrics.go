package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsCollected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popularity",
		Name:      "records_collected_total",
		Help:      "Records emitted by source adapters after normalization.",
	}, []string{"platform"})
	SourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popularity",
		Name:      "source_failures_total",
		Help:      "Source-level total failures (source contributed zero records).",
	}, []string{"platform"})
	DuplicatesRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "popularity",
		Name:      "duplicates_removed_total",
		Help:      "Records collapsed by cross-source deduplication.",
	})
	RecordsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "popularity",
		Name:      "records_written_total",
		Help:      "Rows upserted into the workflows table.",
	})
	RunFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "popularity",
		Name:      "run_failures_total",
		Help:      "Ingestion runs that ended in the failed state.",
	})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(RecordsCollected, SourceFailures, DuplicatesRemoved, RecordsWritten, RunFailures)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090"). Non-blocking when run in goroutine.
func Serve(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}

// AddrFromEnv returns listen address from METRICS_ADDR or default ":9090".
func AddrFromEnv() string {
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		return v
	}
	return ":9090"
}
