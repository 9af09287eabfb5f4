package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/notify"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

// Alerter watches the newest heartbeat of every monitor and notifies on
// UP/DOWN transitions.
type Alerter struct {
	logger     *zap.Logger
	heartbeats repo.HeartbeatStore
	alertDB    repo.AlertStore
	notifier   notify.Notifier
	cfg        AlerterConfig
}

func NewAlerter(
	logger *zap.Logger,
	heartbeats repo.HeartbeatStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{
		logger:     logger,
		heartbeats: heartbeats,
		alertDB:    alertDB,
		notifier:   notifier,
		cfg:        cfg,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	a.scanLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			a.scanLogged(ctx)
		}
	}
}

func (a *Alerter) scanLogged(ctx context.Context) {
	if err := a.scanOnce(ctx); err != nil {
		a.logger.Warn("alerter_scan_error", zap.Error(err))
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	rows, err := a.heartbeats.Latest(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	for _, r := range rows {
		up := r.Up()
		rec, err := a.alertDB.Get(ctx, r.MonitorID)
		if err != nil {
			a.logger.Warn("alerter_state_error", zap.String("monitor_id", r.MonitorID), zap.Error(err))
			continue
		}

		stateChanged := rec == nil || rec.LastState != up

		// Cooldown only matters for DOWN alerts (suppresses noisy repeats).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && !up && cooled
		recoveryAlert := stateChanged && up && rec != nil && a.cfg.AlertOnRecovery // bypass cooldown

		if downAlert || recoveryAlert {
			tr := notify.Transition{
				Name:      r.Name,
				Topic:     r.Topic,
				Up:        up,
				Msg:       r.Msg,
				LatencyMS: r.LatencyMS,
				Time:      r.Time,
			}
			// best effort: the state is recorded even if the send failed
			if err := a.notifier.Send(ctx, tr.Title(), tr.Text()); err != nil {
				a.logger.Warn("alerter_send_error", zap.String("monitor_id", r.MonitorID), zap.Error(err))
			}
			_ = a.alertDB.Set(ctx, r.MonitorID, up, now)
			continue
		}

		// State changed but nothing was sent (DOWN within cooldown, first
		// sighting UP, recovery alerts disabled): record it, keeping the last
		// send time so the cooldown still holds.
		if stateChanged {
			var sentAt time.Time
			if rec != nil && rec.LastSentAt != nil {
				sentAt = *rec.LastSentAt
			}
			_ = a.alertDB.Set(ctx, r.MonitorID, up, sentAt)
		}
	}

	return nil
}
