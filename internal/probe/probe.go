package probe

import (
	"github.com/hamed0406/mqttprobe/internal/broker"
	"github.com/hamed0406/mqttprobe/internal/domain"
)

// Checker probes one monitor and writes the verdict into hb.
//
// Implementations set hb.Status and hb.Msg only. A returned error means the
// call itself was wrong (nil arguments); probe failures are DOWN heartbeats.
type Checker interface {
	Check(m *domain.Monitor, hb *domain.Heartbeat) error
}

// Session fetches one message from a broker topic. *broker.Prober
// implements it.
type Session interface {
	Run(hostname, topic string, o broker.Options) (string, error)
}

var _ Session = (*broker.Prober)(nil)
