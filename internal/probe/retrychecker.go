package probe

import (
	"fmt"
	"time"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

// RetryChecker re-runs Inner until it reports UP or Attempts is exhausted.
// Retrying is a scheduling policy; the scheduler wraps its checker with this
// when RETRY_ATTEMPTS > 1.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(m *domain.Monitor, hb *domain.Heartbeat) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := r.Inner.Check(m, hb); err != nil {
			return err
		}
		if hb.IsUp() {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(r.Backoff)
		}
	}
	if attempts > 1 {
		hb.Msg = fmt.Sprintf("%s (after %d attempts)", hb.Msg, attempts)
	}
	return nil
}
