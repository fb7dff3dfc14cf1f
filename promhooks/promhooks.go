// Package promhooks counts storage events as Prometheus metrics. Keys are
// never used as labels.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/kvault"
)

const namespace = "kvault"

type Hooks struct {
	expired   prometheus.Counter
	corrupt   *prometheus.CounterVec
	backend   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

var _ kvault.Hooks = (*Hooks)(nil)

// New creates the counters and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_reads_total",
			Help:      "Reads that found a past deadline and deleted the entry",
		}),
		corrupt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_reads_total",
			Help:      "Reads whose stored payload could not be recovered",
		}, []string{"reason"}),
		backend: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Backend operation failures by operation",
		}, []string{"op"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encryption_fallbacks_total",
			Help:      "Encryption operations that degraded to an insecure path",
		}, []string{"reason"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{h.expired, h.corrupt, h.backend, h.fallbacks} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *Hooks) ExpiredOnRead(string)                      { h.expired.Inc() }
func (h *Hooks) CorruptOnRead(_, reason string)            { h.corrupt.WithLabelValues(reason).Inc() }
func (h *Hooks) BackendError(op string, _ string, _ error) { h.backend.WithLabelValues(op).Inc() }
func (h *Hooks) EncryptionFallback(reason string)          { h.fallbacks.WithLabelValues(reason).Inc() }
