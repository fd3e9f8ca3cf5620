// Package metrics holds the gateway's domain Prometheus collectors: payment
// outcomes, facilitator latency, cache effectiveness, generation latency and
// failures, and cleanup results. HTTP-level metrics live in the middleware
// package.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payment outcome label values.
const (
	OutcomeChallenged     = "challenged"
	OutcomeMalformed      = "malformed"
	OutcomeInvalid        = "invalid"
	OutcomeSettleFailed   = "settle_failed"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeSettled        = "settled"
	CacheHit              = "hit"
	CacheMiss             = "miss"
	CleanupDeleted        = "deleted"
	CleanupObjectFailed   = "object_failed"
	CleanupRecordFailed   = "record_failed"
	FacilitatorCallVerify = "verify"
	FacilitatorCallSettle = "settle"
)

var (
	PaymentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "x402_payment_outcomes_total",
			Help: "Payment gate results by route and outcome.",
		},
		[]string{"route", "outcome"},
	)

	FacilitatorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "x402_facilitator_duration_seconds",
			Help:    "Duration of facilitator verify and settle calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "x402_cache_lookups_total",
			Help: "Artifact cache lookups by route and result.",
		},
		[]string{"route", "result"},
	)

	// generation can take minutes; default buckets stop at 10s
	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "x402_generation_duration_seconds",
			Help:    "Duration of cache-miss generations from provider call to stored artifact.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"route"},
	)

	GenerationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "x402_generation_failures_total",
			Help: "Failed generations by route and pipeline stage.",
		},
		[]string{"route", "stage"},
	)

	CleanupRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "x402_cleanup_records_total",
			Help: "Expired artifacts processed by the cleanup worker, by result.",
		},
		[]string{"result"},
	)

	ActiveRoutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "x402_active_routes",
			Help: "Number of configured route and quality tiers.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PaymentOutcomes,
		FacilitatorDuration,
		CacheLookups,
		GenerationDuration,
		GenerationFailures,
		CleanupRecords,
		ActiveRoutes,
	)
}
