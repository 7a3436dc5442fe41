package metrics

import "github.com/prometheus/client_golang/prometheus"

// Analysis engine Prometheus metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renoplan",
			Name:      "engine_requests_total",
			Help:      "Total number of analysis engine requests",
		},
		[]string{"provider", "model", "status"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "renoplan",
			Name:      "engine_request_duration_seconds",
			Help:      "Analysis engine request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	EngineTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renoplan",
			Name:      "engine_tokens_total",
			Help:      "Total analysis engine tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EngineRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renoplan",
			Name:      "engine_retries_total",
			Help:      "Total analysis engine retry attempts",
		},
		[]string{"provider", "model"},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers Prometheus engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineRequestsTotal)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(EngineTokensTotal)
	prometheus.MustRegister(EngineRetriesTotal)
	engineMetricsRegistered = true
}
