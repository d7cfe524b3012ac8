// Package report wraps opportunities with run metadata and renders them.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/upsell/internal/opportunity"
)

// Report is the terminal output of one analysis run.
type Report struct {
	RunID         string                    `json:"run_id"`
	Success       bool                      `json:"success"`
	Message       string                    `json:"message"`
	Opportunities []opportunity.Opportunity `json:"opportunities"`
	TotalEvents   int                       `json:"total_events"`
	SkippedEvents int                       `json:"skipped_events"`
	Users         int                       `json:"users"`
	Elapsed       time.Duration             `json:"elapsed_ns"`
	AnalysisTime  string                    `json:"analysis_time"` // "0.42s"
}

// Meta is the run metadata accompanying the opportunities.
type Meta struct {
	TotalEvents   int
	SkippedEvents int
	Users         int
	Elapsed       time.Duration
}

// Build assembles a successful report.
func Build(opps []opportunity.Opportunity, meta Meta) *Report {
	if opps == nil {
		opps = []opportunity.Opportunity{}
	}
	return &Report{
		RunID:         uuid.New().String(),
		Success:       true,
		Message:       fmt.Sprintf("Analysis completed successfully. Found %d upsell opportunities.", len(opps)),
		Opportunities: opps,
		TotalEvents:   meta.TotalEvents,
		SkippedEvents: meta.SkippedEvents,
		Users:         meta.Users,
		Elapsed:       meta.Elapsed,
		AnalysisTime:  formatElapsed(meta.Elapsed),
	}
}

// Failure builds a report for a run that could not normalize its input.
// No partial results are included.
func Failure(err error, elapsed time.Duration) *Report {
	return &Report{
		RunID:         uuid.New().String(),
		Success:       false,
		Message:       fmt.Sprintf("Analysis failed: %s", err),
		Opportunities: []opportunity.Opportunity{},
		Elapsed:       elapsed,
		AnalysisTime:  formatElapsed(elapsed),
	}
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
