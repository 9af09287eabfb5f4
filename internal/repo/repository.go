package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

var ErrNotFound = errors.New("repo: not found")

// Ports implemented by the memory and postgres adapters.
type MonitorStore interface {
	Add(ctx context.Context, m *domain.Monitor) error
	List(ctx context.Context) ([]*domain.Monitor, error)
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error)
}

type HeartbeatStore interface {
	Append(ctx context.Context, hb *domain.Heartbeat) error
	// Latest returns the newest heartbeat of every monitor that has one.
	Latest(ctx context.Context) ([]LatestRow, error)
	// History returns up to limit heartbeats of one monitor, newest first.
	History(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Heartbeat, error)
}

// LatestRow is the newest heartbeat of a monitor joined with the monitor.
type LatestRow struct {
	MonitorID string        `json:"monitor_id"`
	Name      string        `json:"name"`
	Topic     string        `json:"topic"`
	Status    domain.Status `json:"status"`
	Msg       string        `json:"msg"`
	LatencyMS float64       `json:"latency_ms"`
	Time      time.Time     `json:"time"`
}

func (r LatestRow) Up() bool { return r.Status == domain.StatusUp }
