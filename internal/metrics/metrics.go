package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

const namespace = "mqttprobe"

// Probe holds the probe outcome metrics.
type Probe struct {
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewProbe registers the probe metrics with reg.
func NewProbe(reg prometheus.Registerer) (*Probe, error) {
	p := &Probe{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Probe verdicts by check type, status and failure kind.",
		}, []string{"check_type", "status", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall time of one probe, connect to verdict.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"check_type", "status"}),
	}
	for _, c := range []prometheus.Collector{p.results, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Observe records one verdict. A nil *Probe is a no-op.
func (p *Probe) Observe(checkType domain.CheckType, hb *domain.Heartbeat, err error, took time.Duration) {
	if p == nil {
		return
	}
	kind := "none"
	if hb.Status != domain.StatusUp {
		kind = domain.KindOf(err).Label()
	}
	ct := string(checkType)
	if ct == "" {
		ct = "unknown"
	}
	p.results.WithLabelValues(ct, string(hb.Status), kind).Inc()
	p.duration.WithLabelValues(ct, string(hb.Status)).Observe(took.Seconds())
}
