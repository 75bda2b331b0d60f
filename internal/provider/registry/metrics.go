package registry

import "github.com/prometheus/client_golang/prometheus"

const (
	resultOK      = "ok"
	resultError   = "error"
	resultEmpty   = "empty"
	resultSkipped = "skipped"

	reasonException = "exception"
	reasonNoData    = "no_data"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickerpulse",
			Name:      "provider_requests_total",
			Help:      "Provider fetch attempts by operation and result.",
		},
		[]string{"provider", "op", "result"},
	)

	fallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickerpulse",
			Name:      "provider_fallback_total",
			Help:      "Fetches served by a provider after an earlier one failed.",
		},
		[]string{"failed", "served"},
	)
)

// MustRegisterMetrics registers the registry collectors with the default
// prometheus registerer. Call once per process.
func MustRegisterMetrics() {
	prometheus.MustRegister(requestsTotal, fallbackTotal)
}
