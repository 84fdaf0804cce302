package routing

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	assignments *prometheus.CounterVec
	releases    prometheus.Counter
	active      prometheus.Gauge
}

// newMetrics returns nil when reg is nil; every method tolerates a nil receiver.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		assignments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_routing_assignments_total",
				Help: "Assign calls by outcome.",
			},
			[]string{"outcome"},
		),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sales_routing_releases_total",
			Help: "Assignments completed through Release.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sales_routing_active_assignments",
			Help: "Conversations currently bound to a seller.",
		}),
	}
	reg.MustRegister(m.assignments, m.releases, m.active)
	return m
}

func (m *metrics) assigned(outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(outcome).Inc()
}

func (m *metrics) released() {
	if m == nil {
		return
	}
	m.releases.Inc()
}

func (m *metrics) setActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}
