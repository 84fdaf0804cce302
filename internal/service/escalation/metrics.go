package escalation

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	transitions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_routing_escalations_total",
				Help: "Escalation policy transitions by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
	}
	reg.MustRegister(m.transitions)
	return m
}

func (m *metrics) transition(stage, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(stage, outcome).Inc()
}
