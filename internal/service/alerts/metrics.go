package alerts

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	alerts *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_routing_alerts_total",
				Help: "Alerts recorded by reason and delivery status.",
			},
			[]string{"reason", "status"},
		),
	}
	reg.MustRegister(m.alerts)
	return m
}

func (m *metrics) observe(a Alert) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(string(a.Reason), string(a.Status)).Inc()
}
