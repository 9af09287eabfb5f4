package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every notifier and returns all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Log writes alerts to the service log. It is the fallback when no webhook
// is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(ctx context.Context, title, text string) error {
	l.Logger.Warn("alert", zap.String("title", title), zap.String("text", text))
	return nil
}

// Transition describes a monitor whose UP/DOWN state changed.
type Transition struct {
	Name      string
	Topic     string
	Up        bool
	Msg       string
	LatencyMS float64
	Time      time.Time
}

func (t Transition) Title() string {
	if t.Up {
		return "🟢 Monitor RECOVERED"
	}
	return "🔴 Monitor DOWN"
}

func (t Transition) Text() string {
	return fmt.Sprintf(
		"Monitor: %s\nTopic: %s\nLatency: %.0f ms\nMessage: %s\nChecked: %s",
		t.Name, t.Topic, t.LatencyMS, t.Msg, t.Time.Format(time.RFC3339),
	)
}
