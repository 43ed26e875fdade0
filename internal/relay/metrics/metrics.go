// Package metrics registers the relay's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay. Construct once in main;
// services treat a nil *Metrics as disabled so tests don't fight the default
// registry.
type Metrics struct {
	UploadsStored   prometheus.Counter
	UploadsRejected prometheus.Counter
	PollHits        prometheus.Counter
	PollMisses      prometheus.Counter
	SlotsCleared    prometheus.Counter
	PayloadBytes    prometheus.Histogram
}

// New creates and registers all relay metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		UploadsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_uploads_stored_total",
			Help: "Payloads accepted from secondary devices",
		}),
		UploadsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_uploads_rejected_total",
			Help: "Submissions rejected by payload validation",
		}),
		PollHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_poll_hits_total",
			Help: "Slot reads that found a payload",
		}),
		PollMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_poll_misses_total",
			Help: "Slot reads that found nothing (normal keep-polling signal)",
		}),
		SlotsCleared: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_slots_cleared_total",
			Help: "Slot delete requests processed",
		}),
		PayloadBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_payload_bytes",
			Help:    "Encoded size of accepted payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}
