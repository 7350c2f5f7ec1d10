package promcache

import (
	"testing"

	"github.com/agilira/warden"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPromMetricsCollector_Interface(t *testing.T) {
	var _ warden.MetricsCollector = (*PromMetricsCollector)(nil)
}

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := New(WithRegisterer(reg), WithNamespace("test"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if collector == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(WithRegisterer(reg)); err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	if _, err := New(WithRegisterer(reg)); err == nil {
		t.Fatal("second New() against the same registry should fail to register duplicate collectors")
	}
}

func TestPromMetricsCollector_RecordGet(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := New(WithRegisterer(reg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	collector.RecordGet(1_000_000, true)
	collector.RecordGet(2_000_000, false)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var hits, misses float64
	var foundHistogram bool
	for _, f := range families {
		switch f.GetName() {
		case "hits_total":
			hits = sumCounters(f)
		case "misses_total":
			misses = sumCounters(f)
		case "get_latency_seconds":
			foundHistogram = true
		}
	}

	if hits != 1 {
		t.Errorf("expected 1 hit, got %v", hits)
	}
	if misses != 1 {
		t.Errorf("expected 1 miss, got %v", misses)
	}
	if !foundHistogram {
		t.Error("get_latency_seconds histogram not found")
	}
}

func TestPromMetricsCollector_RecordEvictionAndExpiration(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := New(WithRegisterer(reg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	collector.RecordEviction()
	collector.RecordEviction()
	collector.RecordExpiration()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var evictions, expirations float64
	for _, f := range families {
		switch f.GetName() {
		case "evictions_total":
			evictions = sumCounters(f)
		case "expirations_total":
			expirations = sumCounters(f)
		}
	}

	if evictions != 2 {
		t.Errorf("expected 2 evictions, got %v", evictions)
	}
	if expirations != 1 {
		t.Errorf("expected 1 expiration, got %v", expirations)
	}
}

func sumCounters(f *dto.MetricFamily) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}
