package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

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

func main() {
	mode := flag.String("mode", "full", "ingestion mode: full, test or deep")
	dryRun := flag.Bool("dry-run", false, "collect and dedupe but never write to the store")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()

	zl, logPath := newRunLogger(cfg.LogDir, *logLevel)
	defer zl.Sync()

	limits, windowDays := modeSettings(*mode)
	if limits == nil {
		zl.Error("unknown mode", zap.String("mode", *mode))
		os.Exit(2)
	}
	zl.Info("ingestion starting",
		zap.String("mode", *mode), zap.Bool("dryRun", *dryRun), zap.String("log", logPath))

	metrics.Init()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()

	// Migrate the schema up front so the pgx write path can rely on it.
	dbCfg := db.FromEnv()
	database, err := db.NewDatabase(dbCfg)
	if err != nil {
		zl.Error("database connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer database.Close()

	pool, err := db.Connect(ctx, dbCfg)
	if err != nil {
		zl.Error("pool connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Close()
	repo := db.NewWorkflowRepo(pool)

	store, err := storage.NewS3(ctx)
	if err != nil {
		zl.Error("object store init failed", zap.Error(err))
		os.Exit(1)
	}

	seen, err := seencache.Open(cfg.SeenCacheDir, cfg.SeenCacheTTL)
	if err != nil {
		zl.Error("seen cache open failed", zap.Error(err))
		os.Exit(1)
	}
	defer seen.Close()

	adapters := source.BuildAll(source.BuildOptions{
		Config:           cfg,
		Limits:           *limits,
		TrendsWindowDays: windowDays,
		Seen:             seen,
		Logger:           zl,
	})
	terms := keywords.NewProvider(store, cfg.KeywordsURI, zl)

	orch := pipeline.NewOrchestrator(adapters, terms, repo, zl)
	summary, err := orch.Run(ctx, pipeline.RunOptions{Mode: *mode, DryRun: *dryRun})
	if err != nil {
		zl.Error("ingestion failed", zap.Error(err), zap.Any("summary", summary))
		os.Exit(1)
	}

	zl.Info("ingestion finished",
		zap.Int("collected", summary.TotalCollected()),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("written", summary.Written),
		zap.Int("wouldWrite", summary.WouldWrite),
		zap.Any("sourceErrors", summary.SourceErrors))
}

// modeSettings returns the collection bounds per mode; nil limits mean the
// mode is unknown.
func modeSettings(mode string) (*types.Limits, int) {
	switch mode {
	case "full":
		return &types.Limits{}, 0
	case "test":
		return &types.Limits{MaxKeywords: 3, MaxPagesPerKeyword: 2}, 0
	case "deep":
		return &types.Limits{}, 90
	default:
		return nil, 0
	}
}

// newRunLogger tees structured logs to stdout and a dated run file so the
// monitor command can inspect past runs.
func newRunLogger(dir, level string) (*zap.Logger, string) {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	syncers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	logPath := ""
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			logPath = filepath.Join(dir, fmt.Sprintf("ingestion_%s.log", time.Now().Format("20060102")))
			f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				syncers = append(syncers, zapcore.AddSync(f))
			} else {
				log.Printf("cannot open run log %s: %v", logPath, err)
				logPath = ""
			}
		}
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), lvl)
	return zap.New(core), logPath
}
