package repo_test

import (
	"testing"

	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/repo"
	"github.com/hamed0406/mqttprobe/internal/repo/memory"
	pg "github.com/hamed0406/mqttprobe/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.MonitorStore = memory.New()
	var _ repo.HeartbeatStore = memory.New()
	var _ repo.AlertStore = memory.NewAlerts()

	var _ repo.MonitorStore = (*pg.Store)(nil)
	var _ repo.HeartbeatStore = (*pg.Store)(nil)
	var _ repo.AlertStore = (*pg.Alerts)(nil)
}

func TestLatestRow_Up(t *testing.T) {
	if !(repo.LatestRow{Status: domain.StatusUp}).Up() {
		t.Fatalf("up row reported down")
	}
	if (repo.LatestRow{Status: domain.StatusDown}).Up() {
		t.Fatalf("down row reported up")
	}
}
