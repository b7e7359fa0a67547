package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	rooms := 3
	c := New(reg, func() int { return rooms })

	c.Connected()
	c.Connected()
	c.Disconnected()
	c.Relayed("offer", 2)
	c.Dropped("offer", ReasonGone)

	if got := testutil.ToFloat64(c.connections); got != 1 {
		t.Errorf("connections = %v", got)
	}
	if got := testutil.ToFloat64(c.relayed.WithLabelValues("offer")); got != 2 {
		t.Errorf("relayed = %v", got)
	}
	if got := testutil.ToFloat64(c.dropped.WithLabelValues("offer", ReasonGone)); got != 1 {
		t.Errorf("dropped = %v", got)
	}
	n, err := testutil.GatherAndCount(reg, "mesh_rooms")
	if err != nil || n != 1 {
		t.Errorf("rooms gauge count = %d, %v", n, err)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Connected()
	c.Disconnected()
	c.Joined()
	c.Relayed("x", 1)
	c.Dropped("x", ReasonBackpressure)
}
