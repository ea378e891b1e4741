// Package isometrics is the small prometheus counter/gauge set the
// network manager core updates: claims observed, frames dropped,
// queue depth. Grounded on scionproto-scion's gateway/metrics.go
// metric-metadata + promauto registration pattern.
package isometrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/gauge the core touches. A Metrics value
// constructed with New registers with the default prometheus
// registry; NewNop returns counters that still count but are never
// registered or exported, for tests and for embedding when metrics
// aren't wired up.
type Metrics struct {
	FramesSent     prometheus.Counter
	FramesReceived prometheus.Counter
	FramesDropped  prometheus.Counter
	ClaimsSent     prometheus.Counter
	ClaimsObserved prometheus.Counter
	QueueDepth     prometheus.Gauge
}

// New registers and returns the core's metric set against the default
// prometheus registerer.
func New() *Metrics {
	return &Metrics{
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isonm_frames_sent_total",
			Help: "Total CAN frames handed to the hardware layer.",
		}),
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isonm_frames_received_total",
			Help: "Total CAN frames accepted from the hardware ingress callback.",
		}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isonm_frames_dropped_total",
			Help: "Total inbound frames dropped by a bounded receive queue.",
		}),
		ClaimsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isonm_address_claims_sent_total",
			Help: "Total AddressClaim frames sent by internal control functions.",
		}),
		ClaimsObserved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "isonm_address_claims_observed_total",
			Help: "Total AddressClaim frames observed from the bus.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "isonm_receive_queue_depth",
			Help: "Current depth of the receive queue.",
		}),
	}
}

// NewNop returns a Metrics whose counters/gauges are unregistered: they
// hold their values (readable in tests) but no registry exports them.
func NewNop() *Metrics {
	return &Metrics{
		FramesSent:     prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_frames_sent"}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_frames_received"}),
		FramesDropped:  prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_frames_dropped"}),
		ClaimsSent:     prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_claims_sent"}),
		ClaimsObserved: prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_claims_observed"}),
		QueueDepth:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "noop_queue_depth"}),
	}
}
