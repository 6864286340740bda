// Package metrics exposes the daemon's Prometheus metrics (SPEC_FULL.md
// §4.10): handshake attempts/successes/failures by error kind, session
// lifecycle counts, decrypt failures, reorder rejects, and current
// established-peer count.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fhmqvtund"

// Sink is the daemon's metrics surface. It is constructed once per process
// and threaded through the Context alongside the clock and RNG, never as a
// package-level singleton.
type Sink struct {
	HandshakesAttempted prometheus.Counter
	HandshakesSucceeded prometheus.Counter
	HandshakesFailed    *prometheus.CounterVec

	SessionsEstablished prometheus.Counter
	SessionsRekeyed     prometheus.Counter
	SessionsExpired     prometheus.Counter // registered; nothing in this module increments it

	DecryptFailures prometheus.Counter
	ReorderRejects  prometheus.Counter // registered; nothing in this module increments it

	PeersEstablished prometheus.Gauge
}

// New builds a Sink registered against reg. Passing prometheus.NewRegistry()
// gives each test its own isolated registry; the daemon binary uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Sink {
	factory := promauto.With(reg)

	return &Sink{
		HandshakesAttempted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_attempted_total",
			Help:      "Total handshakes attempted, either side.",
		}),
		HandshakesSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_succeeded_total",
			Help:      "Total handshakes that reached an established session.",
		}),
		HandshakesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_failed_total",
			Help:      "Total handshakes that failed, by error kind.",
		}, []string{"reason"}),

		SessionsEstablished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_established_total",
			Help:      "Total sessions established with peers that had no established session.",
		}),
		SessionsRekeyed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_rekeyed_total",
			Help:      "Total sessions replaced by a handshake on an already-established peer.",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Total sessions torn down for exceeding valid_till.",
		}),

		DecryptFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Total record-layer decrypt failures across all sessions.",
		}),
		ReorderRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorder_rejects_total",
			Help:      "Total packets rejected by the reorder window as duplicates or too old.",
		}),

		PeersEstablished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_established",
			Help:      "Current number of peers with an established session.",
		}),
	}
}

// RecordHandshakeFailure increments HandshakesFailed under reason, one of
// the error kinds from spec.md §7 (e.g. "degenerate_sigma", "tag_mismatch",
// "no_handshake_key", "admission_denied").
func (s *Sink) RecordHandshakeFailure(reason string) {
	s.HandshakesFailed.WithLabelValues(reason).Inc()
}

// Handler returns the HTTP handler the daemon mounts at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
