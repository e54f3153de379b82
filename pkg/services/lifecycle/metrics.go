package lifecycle

import (
	"github.com/de-tools/autofixer/pkg/models/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixer",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Issue lifecycle state transitions",
	}, []string{"from", "to"})

	// Labels: operation (generate_fix, apply_fix)
	discardedResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autofixer",
		Subsystem: "lifecycle",
		Name:      "discarded_results_total",
		Help:      "Backend results dropped because the issue was reset while the call was in flight",
	}, []string{"operation"})
)

func recordTransition(from, to domain.LifecycleState) {
	transitions.WithLabelValues(from.String(), to.String()).Inc()
}
