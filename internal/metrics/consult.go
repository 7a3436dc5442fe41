package metrics

import "github.com/prometheus/client_golang/prometheus"

// Consultation pipeline Prometheus metrics.
var (
	ConsultRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renoplan",
			Name:      "consult_runs_total",
			Help:      "Total number of consultation runs",
		},
		[]string{"outcome"}, // "ok" / "error"
	)

	ConsultRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "renoplan",
			Name:      "consult_run_duration_seconds",
			Help:      "End-to-end consultation run duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ConsultCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "renoplan",
			Name:      "consult_candidates",
			Help:      "Candidate locations per consultation run, by pipeline phase",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"phase"}, // "selected" / "dispatched"
	)

	ConsultFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renoplan",
			Name:      "consult_failures_total",
			Help:      "Per-candidate and selection failures during consultation runs",
		},
		[]string{"kind"}, // "engine" / "geo_listing" / "hydrate_miss"
	)
)

var consultMetricsRegistered bool

// RegisterConsultMetrics registers Prometheus consultation metrics. Must be called once from main.
func RegisterConsultMetrics() {
	if consultMetricsRegistered {
		return
	}
	prometheus.MustRegister(ConsultRunsTotal)
	prometheus.MustRegister(ConsultRunDuration)
	prometheus.MustRegister(ConsultCandidates)
	prometheus.MustRegister(ConsultFailuresTotal)
	consultMetricsRegistered = true
}
