package authz

import "github.com/prometheus/client_golang/prometheus"

func (m *Metrics) Decisions(check string, mode Mode, outcome string) prometheus.Counter {
	return m.decisions.WithLabelValues(check, mode.String(), outcome)
}
