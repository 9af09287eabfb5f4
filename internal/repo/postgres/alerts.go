package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamed0406/mqttprobe/internal/repo"
)

var _ repo.AlertStore = (*Alerts)(nil)

// Alerts persists alerter state in the alerts table.
type Alerts struct {
	pool *pgxpool.Pool
}

func (a *Alerts) Get(ctx context.Context, monitorID string) (*repo.AlertRecord, error) {
	const q = `SELECT last_state, last_sent_at FROM alerts WHERE monitor_id=$1`
	var r repo.AlertRecord
	r.MonitorID = monitorID
	var lastSent *time.Time
	err := a.pool.QueryRow(ctx, q, monitorID).Scan(&r.LastState, &lastSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.LastSentAt = lastSent
	return &r, nil
}

func (a *Alerts) Set(ctx context.Context, monitorID string, lastState bool, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (monitor_id, last_state, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (monitor_id)
		DO UPDATE SET last_state=EXCLUDED.last_state, last_sent_at=EXCLUDED.last_sent_at
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := a.pool.Exec(ctx, q, monitorID, lastState, ts)
	return err
}
