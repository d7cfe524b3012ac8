package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upsell_runs_total",
		Help: "Total number of analysis runs, labelled by outcome (success, malformed, error).",
	}, []string{"status"})

	EventsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upsell_events_normalized_total",
		Help: "Total number of events accepted by the normalizer.",
	})

	EventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upsell_events_skipped_total",
		Help: "Total number of raw records dropped for missing required fields.",
	})

	UsersAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upsell_users_analyzed_total",
		Help: "Total number of user timelines run through the detectors.",
	})

	Findings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upsell_findings_total",
		Help: "Total number of raw detector findings, labelled by kind.",
	}, []string{"kind"})

	Opportunities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upsell_opportunities_total",
		Help: "Total number of opportunities emitted after deduplication, labelled by kind.",
	}, []string{"kind"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upsell_analysis_duration_ms",
		Help:    "End-to-end analysis latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
