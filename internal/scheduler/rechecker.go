package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/probe"
	"github.com/hamed0406/mqttprobe/internal/repo"
)

// Rechecker probes every stored monitor on that monitor's own interval. Each
// tick it runs the monitors that are due, at most Concurrency at a time.
type Rechecker struct {
	Logger      *zap.Logger
	Monitors    repo.MonitorStore
	Heartbeats  repo.HeartbeatStore
	Checker     probe.Checker
	Interval    time.Duration // tick; 0 disables the loop
	Concurrency int

	now     func() time.Time
	mu      sync.Mutex
	lastRun map[domain.MonitorID]time.Time
}

func NewRechecker(
	logger *zap.Logger,
	ms repo.MonitorStore,
	hs repo.HeartbeatStore,
	checker probe.Checker,
	interval time.Duration,
	concurrency int,
) *Rechecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	return &Rechecker{
		Logger:      logger,
		Monitors:    ms,
		Heartbeats:  hs,
		Checker:     checker,
		Interval:    interval,
		Concurrency: concurrency,
		now:         time.Now,
		lastRun:     make(map[domain.MonitorID]time.Time),
	}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
func (r *Rechecker) Run(ctx context.Context) error {
	if r.Interval == 0 {
		r.Logger.Info("rechecker_disabled")
		return nil
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("rechecker_stopped")
			return nil
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Rechecker) runOnce(ctx context.Context) {
	ms, err := r.Monitors.List(ctx)
	if err != nil {
		r.Logger.Warn("rechecker_list_error", zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	for _, m := range r.due(ms) {
		g.Go(func() error {
			_, _ = r.CheckNow(gctx, m)
			return nil
		})
	}
	_ = g.Wait()
}

// due picks the monitors whose interval has elapsed and marks them as run.
func (r *Rechecker) due(ms []*domain.Monitor) []*domain.Monitor {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Monitor
	for _, m := range ms {
		last, ok := r.lastRun[m.ID]
		if ok && now.Sub(last) < m.IntervalDuration() {
			continue
		}
		r.lastRun[m.ID] = now
		out = append(out, m)
	}
	return out
}

// CheckNow probes m once, stamps and stores the heartbeat. It also resets
// m's schedule so the next periodic probe is a full interval away.
func (r *Rechecker) CheckNow(ctx context.Context, m *domain.Monitor) (*domain.Heartbeat, error) {
	start := r.now()
	r.mu.Lock()
	r.lastRun[m.ID] = start
	r.mu.Unlock()

	hb := &domain.Heartbeat{MonitorID: m.ID}
	if err := r.Checker.Check(m, hb); err != nil {
		r.Logger.Warn("rechecker_check_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
		return nil, err
	}
	end := r.now()
	hb.LatencyMS = float64(end.Sub(start).Microseconds()) / 1000
	hb.Time = end.UTC()

	if err := r.Heartbeats.Append(ctx, hb); err != nil {
		r.Logger.Warn("rechecker_append_error",
			zap.String("monitor_id", string(m.ID)),
			zap.String("topic", m.Topic),
			zap.Error(err),
		)
		return hb, err
	}
	r.Logger.Debug("rechecker_checked",
		zap.String("monitor_id", string(m.ID)),
		zap.String("topic", m.Topic),
		zap.String("status", string(hb.Status)),
		zap.Float64("latency_ms", hb.LatencyMS),
		zap.String("msg", hb.Msg),
	)
	return hb, nil
}
