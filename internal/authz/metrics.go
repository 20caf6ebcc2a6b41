package authz

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeGranted         = "granted"
	outcomeDenied          = "denied"
	outcomeUnauthenticated = "unauthenticated"
	outcomeError           = "error"
)

// Metrics counts access decisions by check kind, mode and outcome.
type Metrics struct {
	decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "permit",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Access decisions taken by guarded operations.",
		}, []string{"check", "mode", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions)
	}
	return m
}

func (m *Metrics) observe(check string, mode Mode, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(check, mode.String(), outcome).Inc()
}
