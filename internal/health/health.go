// Package health implements the operational checks behind the monitor
// command: log freshness, log error scanning, and store freshness. Checks
// report a status of healthy, warning or error and never fail hard; a
// broken environment is itself a reportable result.
package health

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourorg/popularity-vision/internal/db"
)

const (
	StatusHealthy = "healthy"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Check is the outcome of a single probe.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message"`

	LastRun        *time.Time `json:"last_run,omitempty"`
	HoursSinceRun  float64    `json:"hours_since_last_run,omitempty"`
	Errors         []string   `json:"errors,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
	TotalWorkflows int64      `json:"total_workflows,omitempty"`
	RecentUpdates  int64      `json:"recent_updates,omitempty"`
}

// Report aggregates all checks; the overall status is the worst of them.
type Report struct {
	Timestamp     time.Time        `json:"timestamp"`
	OverallStatus string           `json:"overall_status"`
	Checks        map[string]Check `json:"checks"`
}

// Monitor holds the probe configuration.
type Monitor struct {
	LogDir string
	Repo   db.WorkflowRepository // nil skips the database check
	Now    func() time.Time      // tests pin the clock
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// CheckLastRun verifies an ingestion run happened within the threshold by
// looking at the newest ingestion_*.log file.
func (m *Monitor) CheckLastRun(hoursThreshold int) Check {
	if hoursThreshold <= 0 {
		hoursThreshold = 25
	}
	matches, err := filepath.Glob(filepath.Join(m.LogDir, "ingestion_*.log"))
	if err != nil || len(matches) == 0 {
		return Check{Status: StatusError, Message: "No ingestion log files found"}
	}

	var latest time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	if latest.IsZero() {
		return Check{Status: StatusError, Message: "No ingestion log files found"}
	}

	since := m.now().Sub(latest)
	status := StatusHealthy
	if since > time.Duration(hoursThreshold)*time.Hour {
		status = StatusWarning
	}
	return Check{
		Status:        status,
		Message:       fmt.Sprintf("Last run: %s", latest.Format("2006-01-02 15:04:05")),
		LastRun:       &latest,
		HoursSinceRun: since.Hours(),
	}
}

// CheckLogs scans log files modified within the window for ERROR and WARN
// lines. The last ten of each are included in the result.
func (m *Monitor) CheckLogs(hours int) Check {
	if hours <= 0 {
		hours = 24
	}
	matches, err := filepath.Glob(filepath.Join(m.LogDir, "*.log"))
	if err != nil || len(matches) == 0 {
		return Check{Status: StatusError, Message: "No log files found"}
	}

	cutoff := m.now().Add(-time.Duration(hours) * time.Hour)
	var errs, warns []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().Before(cutoff) {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to read %s: %v", filepath.Base(path), err))
			continue
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 1024), 1024*1024)
		for n := 1; sc.Scan(); n++ {
			line := sc.Text()
			switch {
			case strings.Contains(line, "ERROR"):
				errs = append(errs, fmt.Sprintf("%s:%d - %s", filepath.Base(path), n, strings.TrimSpace(line)))
			case strings.Contains(line, "WARN"):
				warns = append(warns, fmt.Sprintf("%s:%d - %s", filepath.Base(path), n, strings.TrimSpace(line)))
			}
		}
		f.Close()
	}

	status := StatusHealthy
	if len(errs) > 0 {
		status = StatusError
	} else if len(warns) > 0 {
		status = StatusWarning
	}
	return Check{
		Status:   status,
		Message:  fmt.Sprintf("Found %d errors and %d warnings in last %d hours", len(errs), len(warns), hours),
		Errors:   tail(errs, 10),
		Warnings: tail(warns, 10),
	}
}

// CheckDatabase verifies connectivity and that rows were updated within
// the last 48 hours.
func (m *Monitor) CheckDatabase(ctx context.Context) Check {
	if m.Repo == nil {
		return Check{Status: StatusWarning, Message: "Database check not configured"}
	}
	total, recent, err := m.Repo.Count(ctx, m.now().Add(-48*time.Hour))
	if err != nil {
		return Check{Status: StatusError, Message: fmt.Sprintf("Database connection failed: %v", err)}
	}
	status := StatusHealthy
	if recent == 0 {
		status = StatusWarning
	}
	return Check{
		Status:         status,
		Message:        fmt.Sprintf("Total workflows: %d, Recent updates: %d", total, recent),
		TotalWorkflows: total,
		RecentUpdates:  recent,
	}
}

// GenerateReport runs every probe and rolls the statuses up.
func (m *Monitor) GenerateReport(ctx context.Context, hours int) Report {
	report := Report{
		Timestamp:     m.now(),
		OverallStatus: StatusHealthy,
		Checks: map[string]Check{
			"last_run":     m.CheckLastRun(0),
			"log_analysis": m.CheckLogs(hours),
			"database":     m.CheckDatabase(ctx),
		},
	}
	for _, c := range report.Checks {
		switch c.Status {
		case StatusError:
			report.OverallStatus = StatusError
		case StatusWarning:
			if report.OverallStatus != StatusError {
				report.OverallStatus = StatusWarning
			}
		}
	}
	return report
}

func tail(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
