package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))

	c.HostOp("create")
	c.HostOp("create")
	c.Render("sync", 3*time.Millisecond)
	c.Reconcile("move", 2)
	c.Reconcile("remove", 0)
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.CacheEviction()
	c.CallbackFailure("watcher")
	c.DelegateRefused()
	c.ComponentMounted()
	c.ComponentMounted()
	c.ComponentUnmounted()
	c.WireFrame("out", 40)
	c.SessionStarted()
	c.SessionStarted()
	c.SessionEnded()
	c.WebsocketError("upgrade")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"host_ops_total{create}", metricCounterValue(t, c.hostOps.WithLabelValues("create")), 2},
		{"renders_total{sync}", metricCounterValue(t, c.renders.WithLabelValues("sync")), 1},
		{"reconcile_ops_total{move}", metricCounterValue(t, c.reconcileOps.WithLabelValues("move")), 2},
		{"selector_cache_lookups_total{hit}", metricCounterValue(t, c.cacheLookups.WithLabelValues("hit")), 1},
		{"selector_cache_lookups_total{miss}", metricCounterValue(t, c.cacheLookups.WithLabelValues("miss")), 1},
		{"selector_cache_evictions_total", metricCounterValue(t, c.cacheEvictions), 1},
		{"callback_failures_total{watcher}", metricCounterValue(t, c.callbackFailures.WithLabelValues("watcher")), 1},
		{"delegate_refusals_total", metricCounterValue(t, c.delegateRefusals), 1},
		{"components_mounted", metricGaugeValue(t, c.mounted), 1},
		{"wire_bytes_total{out}", metricCounterValue(t, c.wireBytes.WithLabelValues("out")), 40},
		{"active_sessions", metricGaugeValue(t, c.activeSessions), 1},
		{"websocket_errors_total{upgrade}", metricCounterValue(t, c.wsErrors.WithLabelValues("upgrade")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_render_duration_seconds" {
			found = f.GetMetric()[0].GetHistogram().GetSampleCount() == 1
		}
	}
	if !found {
		t.Error("render duration histogram not observed")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.HostOp("create")
	c.Render("sync", time.Millisecond)
	c.Reconcile("create", 1)
	c.CacheLookup(true)
	c.CacheEviction()
	c.CallbackFailure("hook")
	c.DelegateRefused()
	c.ComponentMounted()
	c.ComponentUnmounted()
	c.WireFrame("in", 1)
	c.SessionStarted()
	c.SessionEnded()
	c.WebsocketError("session")
}
