package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

func TestPostgresStore_Monitors_Heartbeats(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	topic := fmt.Sprintf("test/%d", time.Now().UTC().UnixNano())
	m := &domain.Monitor{
		Name:           "pg test",
		Hostname:       "broker.local",
		Port:           1883,
		Password:       "secret",
		Topic:          topic,
		Interval:       30,
		CheckType:      domain.CheckKeyword,
		SuccessMessage: "ok",
	}
	if err := store.Add(ctx, m); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected ID to be set")
	}

	got, err := store.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Topic != topic || got.Password != "secret" || got.CheckType != domain.CheckKeyword || got.Interval != 30 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := store.Get(ctx, "does-not-exist"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	now := time.Now().UTC()
	for i, st := range []domain.Status{domain.StatusDown, domain.StatusUp} {
		hb := &domain.Heartbeat{MonitorID: m.ID, Status: st, Msg: string(st), LatencyMS: 12.5, Time: now.Add(time.Duration(i) * time.Second)}
		if err := store.Append(ctx, hb); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if hb.ID == 0 {
			t.Fatalf("expected heartbeat id")
		}
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	var row *repo.LatestRow
	for i := range latest {
		if latest[i].MonitorID == string(m.ID) {
			row = &latest[i]
			break
		}
	}
	if row == nil {
		t.Fatalf("latest for monitor %s not found", m.ID)
	}
	if !row.Up() || row.Topic != topic || row.Name != "pg test" {
		t.Fatalf("unexpected latest row: %+v", row)
	}

	hist, err := store.History(ctx, m.ID, 1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 || hist[0].Status != domain.StatusUp {
		t.Fatalf("unexpected history: %+v", hist)
	}
}
