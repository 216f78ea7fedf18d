package execute

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts attempts and retries across executions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors on reg. Pass nil to create
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgertx",
			Name:      "attempts_total",
			Help:      "Node attempts made by the execution engine.",
		}, []string{"method", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgertx",
			Name:      "retries_total",
			Help:      "Attempts retried, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledgertx",
			Name:      "execute_seconds",
			Help:      "Wall time of one execution including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.retries, m.duration)
	}
	return m
}

func (m *Metrics) attempt(method, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) retry(reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
}

func (m *Metrics) observe(method string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
