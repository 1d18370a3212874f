package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apikey_validations_total",
			Help: "API key validation attempts by outcome",
		},
		[]string{"outcome"},
	)

	AdmissionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission controller decisions by outcome",
		},
		[]string{"outcome"},
	)

	AdmissionCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "admission_check_duration_seconds",
			Help:    "Duration of admission checks",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	UsageEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_events_total",
			Help: "Usage recording results: recorded, deduplicated, or failed",
		},
		[]string{"result"},
	)

	SecretResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_resolutions_total",
			Help: "Tenant secret resolutions by outcome",
		},
		[]string{"outcome"},
	)

	SecretCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_cache_events_total",
			Help: "Secret handle cache hits and misses",
		},
		[]string{"event"},
	)
)
