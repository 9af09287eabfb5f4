package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

func TestMemoryStore_AddListGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	m := &domain.Monitor{Name: "temp", Hostname: "broker.local", Topic: "sensors/temp", SuccessMessage: "ok"}
	if err := s.Add(ctx, m); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be set: %+v", m)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Topic != "sensors/temp" {
		t.Fatalf("unexpected list: %+v", all)
	}

	// stored values are copies
	all[0].Topic = "changed"
	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Topic != "sensors/temp" {
		t.Fatalf("store leaked its value, topic=%q", got.Topic)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_LatestAndHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := &domain.Monitor{Name: "temp", Topic: "sensors/temp"}
	_ = s.Add(ctx, m)

	base := time.Now().UTC()
	for i, st := range []domain.Status{domain.StatusUp, domain.StatusDown, domain.StatusUp} {
		hb := &domain.Heartbeat{MonitorID: m.ID, Status: st, Msg: string(st), Time: base.Add(time.Duration(i) * time.Second)}
		if err := s.Append(ctx, hb); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if hb.ID != int64(i+1) {
			t.Fatalf("want id %d, got %d", i+1, hb.ID)
		}
	}

	latest, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("want 1 row, got %d", len(latest))
	}
	row := latest[0]
	if !row.Up() || row.Name != "temp" || row.Topic != "sensors/temp" || !row.Time.Equal(base.Add(2*time.Second)) {
		t.Fatalf("unexpected latest row: %+v", row)
	}

	hist, err := s.History(ctx, m.ID, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 || hist[0].ID != 3 || hist[1].Status != domain.StatusDown {
		t.Fatalf("unexpected history: %+v", hist)
	}
	if all, _ := s.History(ctx, m.ID, 0); len(all) != 3 {
		t.Fatalf("limit 0 should return all, got %d", len(all))
	}
}

func TestAlerts_GetSet(t *testing.T) {
	ctx := context.Background()
	a := NewAlerts()

	rec, err := a.Get(ctx, "M1")
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}
	if err := a.Set(ctx, "M1", false, time.Time{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rec, _ = a.Get(ctx, "M1")
	if rec == nil || rec.LastState || rec.LastSentAt != nil {
		t.Fatalf("unexpected: %+v", rec)
	}
	now := time.Now()
	_ = a.Set(ctx, "M1", true, now)
	rec, _ = a.Get(ctx, "M1")
	if rec == nil || !rec.LastState || rec.LastSentAt == nil || !rec.LastSentAt.Equal(now) {
		t.Fatalf("unexpected: %+v", rec)
	}
}
