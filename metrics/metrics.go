package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_operations_total",
		Help: "Total number of API operations by name and outcome (ok or error kind)",
	}, []string{"operation", "outcome"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frontdesk_operation_duration_seconds",
		Help:    "Duration of API operations",
		Buckets: latencyBuckets,
	}, []string{"operation"})

	VisitorAccessTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_visitor_access_transitions_total",
		Help: "Visitor access status changes by resulting status",
	}, []string{"status"})

	VisitorAccessRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_visitor_access_version_retries_total",
		Help: "Visitor access transitions retried after losing an optimistic version check",
	})

	DomainEventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_domain_events_dispatched_total",
		Help: "Domain events handled by type and outcome (succeeded, failed, dead)",
	}, []string{"event_type", "outcome"})

	IncidentRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_incident_log_repairs_total",
		Help: "Standalone incident logs re-propagated by reconciliation",
	})
)

// ObserveOperation records one API call. outcome is "ok" or the error kind.
func ObserveOperation(operation string, outcome string, start time.Time) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func IncVisitorAccessTransition(status string) {
	VisitorAccessTransitions.WithLabelValues(status).Inc()
}

func IncVisitorAccessRetry() {
	VisitorAccessRetries.Inc()
}

func IncDomainEvent(eventType string, outcome string) {
	DomainEventsDispatched.WithLabelValues(eventType, outcome).Inc()
}

func AddIncidentRepairs(n int) {
	if n > 0 {
		IncidentRepairs.Add(float64(n))
	}
}
