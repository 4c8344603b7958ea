// Package metrics exposes Prometheus instrumentation for the access API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "access_platform"

// Result labels for OperationsTotal.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultConflict = "conflict"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	// OperationsTotal counts visitor operations by outcome. Operation labels
	// are the API verbs: checkin, edit, checkout.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Visitor access operations by operation and result.",
	}, []string{"operation", "result"})

	// BadgeConflictsTotal counts reservation races lost, i.e. attempts to
	// bind a badge that another open access already holds.
	BadgeConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "badge_conflicts_total",
		Help:      "Badge reservations rejected because the badge was occupied.",
	})

	// CheckpointRejectionsTotal counts check-ins turned away by the
	// per-checkpoint concurrency cap.
	CheckpointRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkpoint_rejections_total",
		Help:      "Check-in requests rejected by the checkpoint capacity limiter.",
	})
)

// ObserveOperation records one completed operation.
func ObserveOperation(operation, result string) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
