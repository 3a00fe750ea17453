package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels.
const (
	StageScrape   = "scrape"
	StageRendered = "scrape_rendered"
	StageSearch   = "search"
	StageAI       = "ai"
	StageVerify   = "verify"
	StageDetails  = "details"
)

// Outcome labels.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platform_resolver_resolutions_total",
		Help: "Resolutions served, by cache status",
	}, []string{"cache"})

	stageCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "platform_resolver_stage_calls_total",
		Help: "Cascade stage invocations, by stage and outcome",
	}, []string{"stage", "outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "platform_resolver_stage_duration_seconds",
		Help:    "Duration of cascade stage calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"stage"})

	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "platform_resolver_resolve_duration_seconds",
		Help:    "Duration of full resolutions including cache hits",
		Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 20, 30},
	})
)

// ObserveStage records one stage call and its latency.
// Call with time.Now() at the start of the call.
func ObserveStage(stage, outcome string, start time.Time) {
	stageCalls.WithLabelValues(stage, outcome).Inc()
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveResolution records a finished resolution.
func ObserveResolution(cached bool, start time.Time) {
	label := "miss"
	if cached {
		label = "hit"
	}
	resolutions.WithLabelValues(label).Inc()
	resolveDuration.Observe(time.Since(start).Seconds())
}
