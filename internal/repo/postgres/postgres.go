package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

var _ repo.MonitorStore = (*Store)(nil)
var _ repo.HeartbeatStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitors (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL DEFAULT '',
  hostname        TEXT NOT NULL,
  port            INTEGER NOT NULL DEFAULT 0,
  username        TEXT NOT NULL DEFAULT '',
  password        TEXT NOT NULL DEFAULT '',
  topic           TEXT NOT NULL,
  websocket_path  TEXT NOT NULL DEFAULT '',
  interval_s      INTEGER NOT NULL DEFAULT 0,
  check_type      TEXT NOT NULL DEFAULT '',
  success_message TEXT NOT NULL DEFAULT '',
  json_query      TEXT NOT NULL DEFAULT '',
  expected_value  TEXT NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS heartbeats (
  id         BIGSERIAL PRIMARY KEY,
  monitor_id TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
  status     TEXT NOT NULL,
  msg        TEXT NOT NULL,
  latency_ms DOUBLE PRECISION NOT NULL,
  checked_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_heartbeats_monitor_time ON heartbeats (monitor_id, checked_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
  monitor_id   TEXT PRIMARY KEY,
  last_state   BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	s.log.Info("pg_migrated")
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Alerts returns the alert state store sharing this pool.
func (s *Store) Alerts() *Alerts { return &Alerts{pool: s.pool} }

// ---- MonitorStore ----

const monitorCols = `id, name, hostname, port, username, password, topic, websocket_path,
       interval_s, check_type, success_message, json_query, expected_value, created_at`

func (s *Store) Add(ctx context.Context, m *domain.Monitor) error {
	if m.ID == "" {
		m.ID = domain.NewMonitorID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitors (`+monitorCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		string(m.ID), m.Name, m.Hostname, m.Port, m.Username, m.Password, m.Topic, m.WebsocketPath,
		m.Interval, string(m.CheckType), m.SuccessMessage, m.JSONQuery, m.ExpectedValue, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert monitor: %w", err)
	}
	return nil
}

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var (
		m         domain.Monitor
		id        string
		checkType string
	)
	err := row.Scan(&id, &m.Name, &m.Hostname, &m.Port, &m.Username, &m.Password, &m.Topic,
		&m.WebsocketPath, &m.Interval, &checkType, &m.SuccessMessage, &m.JSONQuery,
		&m.ExpectedValue, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.ID = domain.MonitorID(id)
	m.CheckType = domain.CheckType(checkType)
	return &m, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Monitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+monitorCols+`
		   FROM monitors
		  ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []*domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error) {
	m, err := scanMonitor(s.pool.QueryRow(ctx,
		`SELECT `+monitorCols+` FROM monitors WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

// ---- HeartbeatStore ----

func (s *Store) Append(ctx context.Context, hb *domain.Heartbeat) error {
	if hb.Time.IsZero() {
		hb.Time = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO heartbeats (monitor_id, status, msg, latency_ms, checked_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		string(hb.MonitorID), string(hb.Status), hb.Msg, hb.LatencyMS, hb.Time,
	).Scan(&hb.ID)
	if err != nil {
		return fmt.Errorf("insert heartbeat: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context) ([]repo.LatestRow, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT ON (h.monitor_id)
       h.monitor_id,
       m.name,
       m.topic,
       h.status,
       h.msg,
       h.latency_ms,
       h.checked_at
  FROM heartbeats h
  JOIN monitors m ON m.id = h.monitor_id
 ORDER BY h.monitor_id, h.checked_at DESC, h.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	defer rows.Close()

	var out []repo.LatestRow
	for rows.Next() {
		var (
			r      repo.LatestRow
			status string
		)
		if err := rows.Scan(&r.MonitorID, &r.Name, &r.Topic, &status, &r.Msg, &r.LatencyMS, &r.Time); err != nil {
			return nil, fmt.Errorf("scan latest: %w", err)
		}
		r.Status = domain.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) History(ctx context.Context, id domain.MonitorID, limit int) ([]domain.Heartbeat, error) {
	q := `SELECT id, status, msg, latency_ms, checked_at
	        FROM heartbeats
	       WHERE monitor_id = $1
	       ORDER BY checked_at DESC, id DESC`
	args := []any{string(id)}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []domain.Heartbeat
	for rows.Next() {
		hb := domain.Heartbeat{MonitorID: id}
		var status string
		if err := rows.Scan(&hb.ID, &status, &hb.Msg, &hb.LatencyMS, &hb.Time); err != nil {
			return nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		hb.Status = domain.Status(status)
		out = append(out, hb)
	}
	return out, rows.Err()
}
