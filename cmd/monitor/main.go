package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/popularity-vision/internal/config"
	"github.com/yourorg/popularity-vision/internal/db"
	"github.com/yourorg/popularity-vision/internal/health"
)

func main() {
	checkLastRun := flag.Bool("check-last-run", false, "check last ingestion run time")
	checkLogs := flag.Bool("check-logs", false, "analyze logs for errors")
	checkDatabase := flag.Bool("check-database", false, "check database status")
	generateReport := flag.Bool("generate-report", false, "generate full health report")
	hours := flag.Int("hours", 24, "time window for analysis")
	asJSON := flag.Bool("json", false, "output in JSON format")
	alertOnError := flag.Bool("alert-on-error", false, "exit with code 1 if errors found")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m := &health.Monitor{LogDir: cfg.LogDir}
	// The database check is optional: log checks still work without a store.
	if pool, err := db.Connect(ctx, db.FromEnv()); err == nil {
		defer pool.Close()
		m.Repo = db.NewWorkflowRepo(pool)
	} else if *checkDatabase || *generateReport {
		log.Printf("database unavailable: %v", err)
	}

	var (
		status string
		out    any
	)
	switch {
	case *checkLastRun:
		c := m.CheckLastRun(*hours)
		status, out = c.Status, c
	case *checkLogs:
		c := m.CheckLogs(*hours)
		status, out = c.Status, c
	case *checkDatabase:
		c := m.CheckDatabase(ctx)
		status, out = c.Status, c
	case *generateReport:
		r := m.GenerateReport(ctx, *hours)
		status, out = r.OverallStatus, r
	default:
		flag.Usage()
		os.Exit(2)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatal(err)
		}
	} else {
		printHuman(out)
	}

	if *alertOnError && status == health.StatusError {
		os.Exit(1)
	}
}

func printHuman(out any) {
	switch v := out.(type) {
	case health.Check:
		fmt.Printf("[%s] %s\n", v.Status, v.Message)
		for _, e := range v.Errors {
			fmt.Println("  ERROR:", e)
		}
		for _, w := range v.Warnings {
			fmt.Println("  WARN:", w)
		}
	case health.Report:
		fmt.Printf("Overall: %s (%s)\n", v.OverallStatus, v.Timestamp.Format(time.RFC3339))
		for name, c := range v.Checks {
			fmt.Printf("  %-12s [%s] %s\n", name, c.Status, c.Message)
		}
	}
}
