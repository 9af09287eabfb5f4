package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid"
	"go.uber.org/multierr"
)

type MonitorID string

// CheckType selects how a received message is judged.
type CheckType string

const (
	CheckKeyword   CheckType = "keyword"
	CheckJSONQuery CheckType = "json-query"
)

// DefaultInterval is used when a monitor has no interval set.
const DefaultInterval = 20

type Monitor struct {
	ID             MonitorID `json:"id"`
	Name           string    `json:"name"`
	Hostname       string    `json:"hostname"` // bare host or scheme://host
	Port           int       `json:"port"`
	Username       string    `json:"username,omitempty"`
	Password       string    `json:"-"`
	Topic          string    `json:"topic"`
	WebsocketPath  string    `json:"websocket_path,omitempty"`
	Interval       int       `json:"interval"` // seconds
	CheckType      CheckType `json:"check_type"`
	SuccessMessage string    `json:"success_message,omitempty"`
	JSONQuery      string    `json:"json_query,omitempty"`
	ExpectedValue  string    `json:"expected_value,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IntervalDuration is the configured interval, falling back to DefaultInterval.
func (m Monitor) IntervalDuration() time.Duration {
	if m.Interval <= 0 {
		return DefaultInterval * time.Second
	}
	return time.Duration(m.Interval) * time.Second
}

// Monitor validation errors
var (
	ErrBlankHostname = errors.New("hostname must not be blank")
	ErrBlankTopic    = errors.New("topic must not be blank")
	ErrInvalidPort   = errors.New("port must be between 1 and 65535")
	ErrInvalidIntvl  = errors.New("interval must not be negative")
)

// Validate reports every problem with the monitor definition at once.
// It is used when monitors enter the system, not during a probe.
func (m Monitor) Validate() error {
	var err error
	if strings.TrimSpace(m.Hostname) == "" {
		err = multierr.Append(err, ErrBlankHostname)
	}
	if m.Topic == "" {
		err = multierr.Append(err, ErrBlankTopic)
	}
	if m.Port < 1 || m.Port > 65535 {
		err = multierr.Append(err, ErrInvalidPort)
	}
	if m.Interval < 0 {
		err = multierr.Append(err, ErrInvalidIntvl)
	}
	switch m.CheckType {
	case "", CheckKeyword:
		if m.SuccessMessage == "" {
			err = multierr.Append(err, errors.New("keyword check requires success_message"))
		}
	case CheckJSONQuery:
		if strings.TrimSpace(m.JSONQuery) == "" {
			err = multierr.Append(err, errors.New("json-query check requires json_query"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown check_type %q", m.CheckType))
	}
	return err
}

// NewMonitorID returns a fresh, time-ordered monitor id.
func NewMonitorID() MonitorID {
	return MonitorID(ulid.MustNew(ulid.Now(), rand.Reader).String())
}
