// Package metrics exposes Prometheus metrics for the calibration pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoundsCompleted counts finished rounds by terminal status.
	RoundsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calibra_calibration_rounds_total",
		Help: "Calibration rounds by terminal status.",
	}, []string{"status"})

	// RoundDurationMs observes end-to-end round latency per rule.
	RoundDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "calibra_calibration_round_duration_ms",
		Help:    "Calibration round duration in milliseconds.",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	// CohortSize observes surviving cohort sizes after filtering.
	CohortSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "calibra_calibration_cohort_size",
		Help:    "Surviving cohort size per completed round.",
		Buckets: []float64{1, 3, 5, 8, 10, 15, 25, 50, 100},
	})

	// FilterExclusions counts per-stage exclusions across rounds.
	FilterExclusions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calibra_calibration_filter_exclusions_total",
		Help: "Reports excluded by the Byzantine filter, by stage.",
	}, []string{"stage"})

	// ContributionsAccepted counts intake results.
	ContributionsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calibra_contributions_total",
		Help: "Contribution intake outcomes.",
	}, []string{"result"})

	// ConfidenceScore observes published confidence scores.
	ConfidenceScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "calibra_calibration_confidence_score",
		Help:    "Confidence score of completed rounds.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
