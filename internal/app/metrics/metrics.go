// Package metrics exposes server counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mesh"

// Drop reasons.
const (
	ReasonGone         = "recipient_gone"
	ReasonBackpressure = "backpressure"
)

// Collector is nil-safe: every method on a nil *Collector is a no-op.
type Collector struct {
	connections prometheus.Gauge
	joins       prometheus.Counter
	relayed     *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// New registers the collectors on reg. rooms is sampled on every scrape.
func New(reg prometheus.Registerer, rooms func() int) *Collector {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms",
		Help:      "Rooms with at least one member.",
	}, func() float64 { return float64(rooms()) })

	return &Collector{
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open signaling connections.",
		}),
		joins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Accepted room joins.",
		}),
		relayed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Messages delivered to a recipient send buffer.",
		}, []string{"type"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Messages that could not be queued for a recipient.",
		}, []string{"type", "reason"}),
	}
}

func (c *Collector) Connected() {
	if c != nil {
		c.connections.Inc()
	}
}

func (c *Collector) Disconnected() {
	if c != nil {
		c.connections.Dec()
	}
}

func (c *Collector) Joined() {
	if c != nil {
		c.joins.Inc()
	}
}

func (c *Collector) Relayed(typ string, n int) {
	if c != nil && n > 0 {
		c.relayed.WithLabelValues(typ).Add(float64(n))
	}
}

func (c *Collector) Dropped(typ, reason string) {
	if c != nil {
		c.dropped.WithLabelValues(typ, reason).Inc()
	}
}
