package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors shared by the session layer and the
// transport. A nil *Metrics is valid and records nothing.
type Metrics struct {
	rooms        prometheus.Gauge
	members      prometheus.Gauge
	connections  prometheus.Gauge
	events       *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	persistDrops prometheus.Counter
	gatherer     prometheus.Gatherer
}

func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sketchroom_rooms",
			Help: "Number of live rooms.",
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sketchroom_members",
			Help: "Number of room memberships across all rooms.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sketchroom_connections",
			Help: "Number of open websocket connections.",
		}),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchroom_events_total",
				Help: "Inbound socket events by type.",
			},
			[]string{"type"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchroom_rejections_total",
				Help: "Rejected socket events by error code.",
			},
			[]string{"code"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sketchroom_deliveries_total",
				Help: "Broadcast enqueue attempts by outcome.",
			},
			[]string{"outcome"},
		),
		persistDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sketchroom_persist_dropped_total",
			Help: "Background jobs dropped because the worker queue was full.",
		}),
		gatherer: gatherer,
	}

	reg.MustRegister(m.rooms, m.members, m.connections, m.events, m.rejections, m.deliveries, m.persistDrops)

	return m
}

// RegistryChanged moves the room and membership gauges by the given
// deltas. Callers report each committed membership change exactly once.
func (m *Metrics) RegistryChanged(rooms, members int) {
	if m == nil {
		return
	}
	m.rooms.Add(float64(rooms))
	m.members.Add(float64(members))
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) Event(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Rejection(code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(code).Inc()
}

func (m *Metrics) Deliveries(delivered, dropped int, faulted bool) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues("dropped").Add(float64(dropped))
	if faulted {
		m.deliveries.WithLabelValues("faulted").Inc()
	}
}

func (m *Metrics) PersistDropped() {
	if m == nil {
		return
	}
	m.persistDrops.Inc()
}

// Handler exposes the registry this Metrics was registered against.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
