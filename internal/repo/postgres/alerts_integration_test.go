//go:build integration

package postgres

// go test -tags=integration ./internal/repo/postgres -run AlertsCRUD -count=1

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAlertsCRUD(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL empty")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	alerts := store.Alerts()
	id := fmt.Sprintf("T-%d", time.Now().UnixNano())

	// none yet
	rec, err := alerts.Get(ctx, id)
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}

	// set (no sent time)
	if err := alerts.Set(ctx, id, false, time.Time{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, err = alerts.Get(ctx, id)
	if err != nil || rec == nil || rec.LastSentAt != nil || rec.LastState {
		t.Fatalf("unexpected: %+v err=%v", rec, err)
	}

	// set with sent time
	if err := alerts.Set(ctx, id, true, time.Now()); err != nil {
		t.Fatalf("set2: %v", err)
	}
	rec, err = alerts.Get(ctx, id)
	if err != nil || rec == nil || rec.LastSentAt == nil || !rec.LastState {
		t.Fatalf("unexpected2: %+v err=%v", rec, err)
	}
}
