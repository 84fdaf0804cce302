package followup

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	scheduled prometheus.Counter
	fired     *prometheus.CounterVec
	active    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sales_routing_timers_scheduled_total",
			Help: "Follow-up timers armed.",
		}),
		fired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_routing_timers_fired_total",
				Help: "Follow-up timers that ran, by outcome.",
			},
			[]string{"outcome"},
		),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sales_routing_timers_active",
			Help: "Follow-up timers currently pending.",
		}),
	}
	reg.MustRegister(m.scheduled, m.fired, m.active)
	return m
}

func (m *metrics) armed(active int) {
	if m == nil {
		return
	}
	m.scheduled.Inc()
	m.active.Set(float64(active))
}

func (m *metrics) finished(outcome Outcome, active int) {
	if m == nil {
		return
	}
	if outcome != OutcomeCancelled {
		m.fired.WithLabelValues(string(outcome)).Inc()
	}
	m.active.Set(float64(active))
}
