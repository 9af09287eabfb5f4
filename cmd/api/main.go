package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/mqttprobe/internal/broker"
	"github.com/hamed0406/mqttprobe/internal/config"
	"github.com/hamed0406/mqttprobe/internal/httpapi"
	apimw "github.com/hamed0406/mqttprobe/internal/httpapi/middleware"
	"github.com/hamed0406/mqttprobe/internal/logging"
	"github.com/hamed0406/mqttprobe/internal/metrics"
	"github.com/hamed0406/mqttprobe/internal/notify"
	"github.com/hamed0406/mqttprobe/internal/probe"
	"github.com/hamed0406/mqttprobe/internal/repo"
	"github.com/hamed0406/mqttprobe/internal/repo/memory"
	pg "github.com/hamed0406/mqttprobe/internal/repo/postgres"
	"github.com/hamed0406/mqttprobe/internal/scheduler"
)

type stores struct {
	monitors   repo.MonitorStore
	heartbeats repo.HeartbeatStore
	alerts     repo.AlertStore
	close      func()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("store_memory")
		m := memory.New()
		return &stores{monitors: m, heartbeats: m, alerts: memory.NewAlerts(), close: func() {}}, nil
	}
	s, err := pg.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("store_postgres")
	return &stores{monitors: s, heartbeats: s, alerts: s.Alerts(), close: s.Close}, nil
}

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api_exit", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("api_stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	probeMetrics, err := metrics.NewProbe(reg)
	if err != nil {
		return err
	}

	var checker probe.Checker = probe.NewMQTTChecker(logger, broker.NewProber(logger), probeMetrics)
	if cfg.RetryAttempts > 1 {
		checker = &probe.RetryChecker{Inner: checker, Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}
	}
	checker = probe.NewDNSChecker(checker)

	rc := scheduler.NewRechecker(logger, st.monitors, st.heartbeats, checker, cfg.CheckInterval, cfg.MaxConcurrentChecks)

	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		notifiers = append(notifiers, s)
	}
	al := scheduler.NewAlerter(logger, st.heartbeats, st.alerts, notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
		PollInterval:    cfg.AlertPoll,
	})

	api := httpapi.NewServer(logger, st.monitors, st.heartbeats, rc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rc.Run(gctx) })
	g.Go(func() error { return al.Run(gctx) })
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
