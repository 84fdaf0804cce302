package websocket

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	delivered   prometheus.Counter
	published   *prometheus.CounterVec
}

// newMetrics returns nil without a registerer; every method tolerates a nil receiver.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sales_routing_ws_connections",
			Help: "Current number of alert feed websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sales_routing_ws_rooms",
			Help: "Current number of alert feed rooms.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sales_routing_ws_messages_delivered_total",
			Help: "Total alert feed messages delivered to clients.",
		}),
	}
	reg.MustRegister(m.connections, m.rooms, m.delivered)
	return m
}

func newPublisherMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sales_routing_alert_feed_published_total",
			Help: "Alert feed publishes by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.published)
	return m
}

func (m *metrics) incConnections() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *metrics) decConnections() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *metrics) setRooms(count int) {
	if m == nil {
		return
	}
	m.rooms.Set(float64(count))
}

func (m *metrics) addDelivered(count int) {
	if m == nil {
		return
	}
	m.delivered.Add(float64(count))
}

func (m *metrics) publish(outcome string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(outcome).Inc()
}
