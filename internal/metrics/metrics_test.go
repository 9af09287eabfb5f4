package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

func counterValue(t *testing.T, reg *prometheus.Registry, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "mqttprobe_probe_results_total" {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestProbe_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProbe(reg)
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}

	up := &domain.Heartbeat{Status: domain.StatusUp}
	p.Observe(domain.CheckKeyword, up, nil, 10*time.Millisecond)

	down := &domain.Heartbeat{Status: domain.StatusDown}
	p.Observe(domain.CheckJSONQuery, down, &domain.Failure{Kind: domain.KindTimeout}, time.Second)
	p.Observe(domain.CheckJSONQuery, down, &domain.Failure{Kind: domain.KindTimeout}, time.Second)

	if v := counterValue(t, reg, map[string]string{"check_type": "keyword", "status": "up", "kind": "none"}); v != 1 {
		t.Fatalf("want 1 up, got %v", v)
	}
	if v := counterValue(t, reg, map[string]string{"check_type": "json-query", "status": "down", "kind": "timeout"}); v != 2 {
		t.Fatalf("want 2 timeouts, got %v", v)
	}
	p.Observe("", down, errors.New("plain"), 0)
	if v := counterValue(t, reg, map[string]string{"check_type": "unknown", "kind": "unknown"}); v != 1 {
		t.Fatalf("want 1 unknown, got %v", v)
	}
}

func TestProbe_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewProbe(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewProbe(reg); err == nil {
		t.Fatal("want error registering twice")
	}
}

func TestProbe_NilIsNoop(t *testing.T) {
	var p *Probe
	p.Observe(domain.CheckKeyword, &domain.Heartbeat{Status: domain.StatusUp}, nil, 0)
}
