// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SyncPassDuration tracks full reconciliation pass duration.
	SyncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconciliation_pass_duration_seconds",
			Help:    "Full reconciliation pass duration",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// TicketsUpsertedTotal tracks tickets written by reconciliation.
	TicketsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_tickets_upserted_total",
			Help: "Tickets written by reconciliation",
		},
		[]string{"outcome"},
	)

	// ConversationsSkippedTotal tracks conversations skipped during a pass.
	ConversationsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_conversations_skipped_total",
			Help: "Conversations skipped during reconciliation passes",
		},
	)

	// TicketEventsPublishedTotal tracks ticket events published to NATS.
	TicketEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_events_published_total",
			Help: "Ticket events published to the message bus",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSyncPass records the duration of a full reconciliation pass.
func RecordSyncPass(duration float64) {
	SyncPassDuration.Observe(duration)
}

// RecordTicketUpsert records a ticket write.
func RecordTicketUpsert(created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	TicketsUpsertedTotal.WithLabelValues(outcome).Inc()
}

// RecordConversationSkipped records a conversation skipped mid-pass.
func RecordConversationSkipped() {
	ConversationsSkippedTotal.Inc()
}

// RecordTicketEvent records a publish attempt to the message bus.
func RecordTicketEvent(ok bool) {
	status := "error"
	if ok {
		status = "ok"
	}
	TicketEventsPublishedTotal.WithLabelValues(status).Inc()
}
