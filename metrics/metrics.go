// Package metrics exposes Prometheus collectors for the booking engine.
// Collectors are registered on the default registry; the HTTP server
// serves them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal counts slot reservation attempts by outcome.
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "reservations_total",
		Help:      "Slot reservation attempts by outcome (won, lost, error).",
	}, []string{"outcome"})

	// LifecycleEventsTotal counts committed appointment transitions.
	LifecycleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "lifecycle_events_total",
		Help:      "Committed appointment lifecycle transitions by kind.",
	}, []string{"kind"})

	// NotificationsTotal counts outbound notification deliveries.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "notifications_total",
		Help:      "Outbound notifications by delivery status (sent, failed, logged).",
	}, []string{"status"})

	// HTTPRequestsTotal counts handled HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "http_requests_total",
		Help:      "Handled HTTP requests by method, matched route and status code.",
	}, []string{"method", "route", "status"})
)
