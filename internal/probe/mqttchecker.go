package probe

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mqttprobe/internal/broker"
	"github.com/hamed0406/mqttprobe/internal/domain"
	"github.com/hamed0406/mqttprobe/internal/evaluate"
	"github.com/hamed0406/mqttprobe/internal/metrics"
)

var (
	errNilMonitor   = errors.New("probe: nil monitor")
	errNilHeartbeat = errors.New("probe: nil heartbeat")
)

// MQTTChecker subscribes to a monitor's topic, waits for one message and
// judges it. It never retries.
type MQTTChecker struct {
	Logger  *zap.Logger
	Session Session
	Metrics *metrics.Probe // optional
}

func NewMQTTChecker(logger *zap.Logger, session Session, m *metrics.Probe) *MQTTChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTChecker{Logger: logger, Session: session, Metrics: m}
}

func (c *MQTTChecker) Check(m *domain.Monitor, hb *domain.Heartbeat) error {
	if m == nil {
		return errNilMonitor
	}
	if hb == nil {
		return errNilHeartbeat
	}

	// the caller's monitor is left untouched
	eff := *m
	if eff.CheckType == "" {
		eff.CheckType = domain.CheckKeyword
	}

	start := time.Now()
	err := c.run(eff, hb)
	c.Metrics.Observe(eff.CheckType, hb, err, time.Since(start))

	if err != nil {
		c.Logger.Debug("probe_down",
			zap.String("monitor_id", string(eff.ID)),
			zap.String("topic", eff.Topic),
			zap.String("kind", domain.KindOf(err).Label()),
			zap.Error(err),
		)
	}
	return nil
}

func (c *MQTTChecker) run(m domain.Monitor, hb *domain.Heartbeat) error {
	check, err := evaluate.ForMonitor(m)
	if err != nil {
		hb.Down(err.Error())
		return err
	}

	raw, err := c.Session.Run(m.Hostname, m.Topic, broker.Options{
		Port:          m.Port,
		Username:      m.Username,
		Password:      m.Password,
		WebsocketPath: m.WebsocketPath,
		Interval:      m.IntervalDuration(),
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = &domain.Failure{Kind: domain.KindProtocol, Topic: m.Topic, Err: err}
		}
		hb.Down(err.Error())
		return err
	}

	msg, err := evaluate.Evaluate(check, m.Topic, raw)
	if err != nil {
		hb.Down(err.Error())
		return err
	}
	hb.Up(msg)
	return nil
}
