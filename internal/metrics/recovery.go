// Package metrics holds the Prometheus collectors the recovery engine and
// the simulator feed. Construction is optional everywhere: a nil *Recovery
// records nothing, so library callers pay for nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recovery bundles the engine-side collectors.
type Recovery struct {
	batches  *prometheus.CounterVec
	matches  *prometheus.CounterVec
	proofs   *prometheus.CounterVec
	retries  prometheus.Counter
	keysets  prometheus.Counter
	duration prometheus.Histogram
}

// NewRecovery registers the recovery collectors with reg. Passing nil
// leaves them unregistered, which is what most tests want.
func NewRecovery(reg prometheus.Registerer) *Recovery {
	factory := promauto.With(reg)

	return &Recovery{
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restore_batches_total",
			Help: "Restore batches submitted to the mint, per keyset.",
		}, []string{"keyset"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restore_matches_total",
			Help: "Blind signatures returned by the mint, per keyset.",
		}, []string{"keyset"}),
		proofs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proofs_recovered_total",
			Help: "Proofs successfully reconstructed, per keyset.",
		}, []string{"keyset"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "restore_retries_total",
			Help: "Mint requests that needed another attempt.",
		}),
		keysets: factory.NewCounter(prometheus.CounterOpts{
			Name: "keysets_scanned_total",
			Help: "Keyset scans run to completion, successful or not.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Wall-clock duration of whole recovery runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Recovery) BatchIssued(keyset string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(keyset).Inc()
}

func (m *Recovery) MatchesFound(keyset string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.matches.WithLabelValues(keyset).Add(float64(n))
}

func (m *Recovery) ProofsRecovered(keyset string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.proofs.WithLabelValues(keyset).Add(float64(n))
}

func (m *Recovery) RetryObserved() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Recovery) KeysetScanned() {
	if m == nil {
		return
	}
	m.keysets.Inc()
}

func (m *Recovery) ScanObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
