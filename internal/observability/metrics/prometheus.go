// Package metrics provides Prometheus metrics for the medication tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestsCreated     prometheus.Counter
	RequestsDeleted     prometheus.Counter
	MutationsFailed     prometheus.Counter
	MutationDuration    prometheus.Histogram
	ActiveSubscriptions prometheus.Gauge
	SnapshotsDelivered  prometheus.Counter
	DecodeFailures      prometheus.Counter
	ChangesPublished    prometheus.Counter
	UploadsAccepted     prometheus.Counter
	UploadsRejected     prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		RequestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_requests_created_total",
			Help: "Total medication requests created",
		}),
		RequestsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_requests_deleted_total",
			Help: "Total medication requests deleted",
		}),
		MutationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_mutations_failed_total",
			Help: "Total failed record mutations",
		}),
		MutationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medication_mutation_duration_seconds",
			Help:    "Record mutation duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ActiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medication_active_subscriptions",
			Help: "Currently active snapshot subscriptions",
		}),
		SnapshotsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_snapshots_delivered_total",
			Help: "Total snapshots delivered to subscribers",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_decode_failures_total",
			Help: "Documents rejected at the store boundary",
		}),
		ChangesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_changes_published_total",
			Help: "Change events published to Kafka",
		}),
		UploadsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_uploads_accepted_total",
			Help: "Attachment uploads accepted",
		}),
		UploadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medication_uploads_rejected_total",
			Help: "Attachment uploads rejected by validation",
		}),
	}

	prometheus.MustRegister(
		m.RequestsCreated,
		m.RequestsDeleted,
		m.MutationsFailed,
		m.MutationDuration,
		m.ActiveSubscriptions,
		m.SnapshotsDelivered,
		m.DecodeFailures,
		m.ChangesPublished,
		m.UploadsAccepted,
		m.UploadsRejected,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
