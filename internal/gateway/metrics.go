package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the client-side Prometheus collectors.
var Registry = prometheus.NewRegistry()

var (
	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainfund",
			Subsystem: "gateway",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight API requests.",
		},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainfund",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of API requests issued. Status 0 marks a transport failure.",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chainfund",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(requestsInFlight, requestsTotal, requestDuration)
}
