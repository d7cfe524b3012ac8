package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/detector"
	"github.com/gyaneshwarpardhi/upsell/internal/event"
	"github.com/gyaneshwarpardhi/upsell/internal/metrics"
	"github.com/gyaneshwarpardhi/upsell/internal/opportunity"
	"github.com/gyaneshwarpardhi/upsell/internal/report"
)

// Engine runs the classification pipeline. It holds no per-run state, so
// one Engine may serve concurrent runs.
type Engine struct {
	registry atomic.Pointer[detector.Registry]
	workers  int
	logger   *slog.Logger
}

// New creates an Engine over reg using conf.
func New(reg *detector.Registry, conf config.EngineConf) *Engine {
	e := &Engine{
		workers: conf.Workers,
		logger:  slog.Default().With("component", "engine"),
	}
	e.registry.Store(reg)
	return e
}

// SwapRegistry atomically replaces the detector set (hot-reload).
// Runs already in flight finish with the registry they started with.
func (e *Engine) SwapRegistry(reg *detector.Registry) {
	e.registry.Store(reg)
	e.logger.Info("detector registry swapped", "kinds", reg.Kinds())
}

// Kinds lists the detector kinds currently in force.
func (e *Engine) Kinds() []detector.Kind {
	return e.registry.Load().Kinds()
}

// NormalizeAndGroup parses a raw event document and indexes it by user.
// The error wraps event.ErrMalformedInput when the container is unrecognized.
func (e *Engine) NormalizeAndGroup(raw []byte) (*event.Timelines, event.Stats, error) {
	events, stats, err := event.Parse(raw)
	if err != nil {
		return nil, stats, err
	}
	if stats.Skipped > 0 {
		e.logger.Debug("skipped incomplete records", "skipped", stats.Skipped, "raw", stats.Raw)
	}
	return event.Group(events), stats, nil
}

// Analyze runs every registered detector over every timeline and
// aggregates the findings. Elapsed covers detection and aggregation only.
// Cancelling ctx does not shorten the run; the report is always complete.
func (e *Engine) Analyze(ctx context.Context, tl *event.Timelines, th config.Thresholds) *report.Report {
	start := time.Now()
	opps := e.classify(ctx, tl, th)
	r := report.Build(opps, report.Meta{
		TotalEvents: tl.EventCount(),
		Users:       tl.Len(),
		Elapsed:     time.Since(start),
	})
	e.record(r, event.Stats{}, opps)
	return r
}

// Run executes the full pipeline over a raw document. Elapsed covers
// normalization through aggregation. A malformed document yields a
// failed report, never a partial one.
func (e *Engine) Run(ctx context.Context, raw []byte, th config.Thresholds) *report.Report {
	start := time.Now()

	tl, stats, err := e.NormalizeAndGroup(raw)
	if err != nil {
		elapsed := time.Since(start)
		status := "error"
		if errors.Is(err, event.ErrMalformedInput) {
			status = "malformed"
		}
		metrics.Runs.WithLabelValues(status).Inc()
		e.logger.Warn("analysis rejected input", "err", err)
		return report.Failure(err, elapsed)
	}

	opps := e.classify(ctx, tl, th)
	r := report.Build(opps, report.Meta{
		TotalEvents:   tl.EventCount(),
		SkippedEvents: stats.Skipped,
		Users:         tl.Len(),
		Elapsed:       time.Since(start),
	})
	e.record(r, stats, opps)
	return r
}

// record publishes metrics and the completion log line for a successful run.
func (e *Engine) record(r *report.Report, stats event.Stats, opps []opportunity.Opportunity) {
	elapsed := r.Elapsed
	metrics.Runs.WithLabelValues("success").Inc()
	metrics.EventsNormalized.Add(float64(r.TotalEvents))
	metrics.EventsSkipped.Add(float64(stats.Skipped))
	metrics.AnalysisDuration.Observe(float64(elapsed.Milliseconds()))
	for _, op := range opps {
		metrics.Opportunities.WithLabelValues(string(op.Kind)).Inc()
	}

	e.logger.Info("analysis completed",
		"run_id", r.RunID,
		"container", stats.Container,
		"events", r.TotalEvents,
		"skipped", r.SkippedEvents,
		"users", r.Users,
		"opportunities", len(opps),
		"elapsed", elapsed,
	)
}

// classify produces the ordered opportunity list: users in arrival order,
// then detectors in registration order.
func (e *Engine) classify(ctx context.Context, tl *event.Timelines, th config.Thresholds) []opportunity.Opportunity {
	detectors := e.registry.Load().Detectors()
	timelines := tl.Ordered()

	detect := func(_ context.Context, u *event.UserTimeline) []detector.Finding {
		var out []detector.Finding
		for _, d := range detectors {
			out = append(out, d.Detect(u, th)...)
		}
		return out
	}

	var perUser [][]detector.Finding
	if e.workers > 1 && len(timelines) > 1 {
		perUser = fanOut(ctx, e.workers, timelines, detect)
	} else {
		perUser = make([][]detector.Finding, len(timelines))
		for i, u := range timelines {
			perUser[i] = detect(ctx, u)
		}
	}

	var findings []detector.Finding
	for _, fs := range perUser {
		for _, f := range fs {
			metrics.Findings.WithLabelValues(string(f.Kind)).Inc()
		}
		findings = append(findings, fs...)
	}
	metrics.UsersAnalyzed.Add(float64(len(timelines)))

	return opportunity.Aggregate(findings)
}
