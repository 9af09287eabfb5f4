package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

// Store keeps monitors and heartbeats in process memory. Monitors are copied
// in and out so callers never share the stored value.
type Store struct {
	mu         sync.RWMutex
	monitors   map[domain.MonitorID]domain.Monitor
	heartbeats []domain.Heartbeat
	nextID     int64
}

func New() *Store {
	return &Store{
		monitors:   make(map[domain.MonitorID]domain.Monitor),
		heartbeats: make([]domain.Heartbeat, 0, 128),
	}
}

func (s *Store) Add(ctx context.Context, m *domain.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = domain.NewMonitorID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.monitors[m.ID] = *m
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Monitor, 0, len(s.monitors))
	for _, m := range s.monitors {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Get(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitors[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &m, nil
}

func (s *Store) Append(ctx context.Context, hb *domain.Heartbeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	hb.ID = s.nextID
	if hb.Time.IsZero() {
		hb.Time = time.Now().UTC()
	}
	s.heartbeats = append(s.heartbeats, *hb)
	return nil
}

func (s *Store) Latest(ctx context.Context) ([]repo.LatestRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[domain.MonitorID]domain.Heartbeat)
	for _, hb := range s.heartbeats {
		cur, ok := latest[hb.MonitorID]
		if !ok || !hb.Time.Before(cur.Time) {
			latest[hb.MonitorID] = hb
		}
	}

	out := make([]repo.LatestRow, 0, len(latest))
	for id, hb := range latest {
		row := repo.LatestRow{
			MonitorID: string(id),
			Status:    hb.Status,
			Msg:       hb.Msg,
			LatencyMS: hb.LatencyMS,
			Time:      hb.Time,
		}
		if m, ok := s.monitors[id]; ok {
			row.Name = m.Name
			row.Topic = m.Topic
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonitorID < out[j].MonitorID })
	return out, nil
}

func (s *Store) History(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Heartbeat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Heartbeat
	for i := len(s.heartbeats) - 1; i >= 0; i-- {
		if s.heartbeats[i].MonitorID != id {
			continue
		}
		out = append(out, s.heartbeats[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Alerts is an in-memory repo.AlertStore.
type Alerts struct {
	mu   sync.Mutex
	recs map[string]repo.AlertRecord
}

func NewAlerts() *Alerts {
	return &Alerts{recs: make(map[string]repo.AlertRecord)}
}

func (a *Alerts) Get(ctx context.Context, monitorID string) (*repo.AlertRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.recs[monitorID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (a *Alerts) Set(ctx context.Context, monitorID string, lastState bool, sentAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := repo.AlertRecord{MonitorID: monitorID, LastState: lastState}
	if !sentAt.IsZero() {
		r.LastSentAt = &sentAt
	}
	a.recs[monitorID] = r
	return nil
}
