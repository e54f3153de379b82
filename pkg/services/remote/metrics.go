package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: endpoint, outcome (success, unavailable, rejected, malformed)
	remoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixer",
		Subsystem: "remote",
		Name:      "calls_total",
		Help:      "Backend calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	remoteCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "autofixer",
		Subsystem: "remote",
		Name:      "call_duration_seconds",
		Help:      "Backend call latency including retries",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"endpoint"})

	remoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixer",
		Subsystem: "remote",
		Name:      "retries_total",
		Help:      "Backend call retries after an unavailable outcome",
	}, []string{"endpoint"})
)

func recordCall(endpoint Endpoint, err error, seconds float64) {
	outcome := "success"
	if err != nil {
		outcome = classify(err)
	}
	remoteCalls.WithLabelValues(string(endpoint), outcome).Inc()
	remoteCallDuration.WithLabelValues(string(endpoint)).Observe(seconds)
}

func classify(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Kind.String()
	}
	return "unavailable"
}
