package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	tactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/activities"
	"github.com/yourorg/popularity-vision/internal/config"
	"github.com/yourorg/popularity-vision/internal/db"
	pvmetrics "github.com/yourorg/popularity-vision/internal/metrics"
	"github.com/yourorg/popularity-vision/internal/seencache"
	"github.com/yourorg/popularity-vision/internal/storage"
	"github.com/yourorg/popularity-vision/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	// Support both TEMPORAL_TARGET_HOST and TEMPORAL_ADDRESS for compatibility
	taddr := getenv("TEMPORAL_TARGET_HOST", getenv("TEMPORAL_ADDRESS", "localhost:7233"))
	ns := getenv("TEMPORAL_NAMESPACE", "default")
	q := getenv("TEMPORAL_TASK_QUEUE", "popularity-vision")

	// Structured logger (zap)
	zl := newZap(getenv("LOG_LEVEL", "info"))
	defer zl.Sync()

	// Metrics server
	pvmetrics.Init()
	go func() {
		addr := pvmetrics.AddrFromEnv()
		_ = pvmetrics.Serve(addr)
	}()

	ctx := context.Background()
	cfg := config.FromEnv()

	pool, err := db.Connect(ctx, db.FromEnv())
	if err != nil {
		log.Fatal("db connect:", err)
	}
	defer pool.Close()
	repo := db.NewWorkflowRepo(pool)

	store, err := storage.NewS3(ctx)
	if err != nil {
		log.Fatal("s3 init:", err)
	}

	seen, err := seencache.Open(cfg.SeenCacheDir, cfg.SeenCacheTTL)
	if err != nil {
		log.Fatal("seen cache:", err)
	}
	defer seen.Close()

	c, err := client.Dial(client.Options{HostPort: taddr, Namespace: ns})
	if err != nil {
		log.Fatal("temporal client:", err)
	}
	defer c.Close()

	w := worker.New(c, q, worker.Options{})
	acts := activities.New(cfg, store, repo, seen, zl)
	// Register activities with explicit names matching workflow.ExecuteActivity calls
	w.RegisterActivityWithOptions(acts.CollectSource, tactivity.RegisterOptions{Name: "Activities.CollectSource"})
	w.RegisterActivityWithOptions(acts.PersistRecords, tactivity.RegisterOptions{Name: "Activities.PersistRecords"})
	w.RegisterWorkflow(workflow.IngestionWorkflow)

	zl.Info("worker started", zap.String("namespace", ns), zap.String("taskQueue", q))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal("worker failed:", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newZap(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
