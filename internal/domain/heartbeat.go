package domain

import "time"

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Heartbeat is the record of one probe. The probe itself only sets Status and
// Msg; the scheduler stamps the rest.
type Heartbeat struct {
	ID        int64     `json:"id,omitempty"`
	MonitorID MonitorID `json:"monitor_id"`
	Status    Status    `json:"status"`
	Msg       string    `json:"msg"`
	LatencyMS float64   `json:"latency_ms"`
	Time      time.Time `json:"time"`
}

func (h *Heartbeat) Up(msg string) {
	h.Status = StatusUp
	h.Msg = msg
}

func (h *Heartbeat) Down(msg string) {
	h.Status = StatusDown
	h.Msg = msg
}

func (h Heartbeat) IsUp() bool { return h.Status == StatusUp }
