package appeears

import (
	"context"
	"time"

	"github.com/bloomwatch/backend/internal/domain"
)

// PollPolicy is a bounded, constant-interval retry policy. Each attempt
// waits Interval and then runs the probe; the loop ends when the probe
// reports done, returns an error, or MaxAttempts is reached.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	// Sleep waits d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPollPolicy polls every 4 seconds for at most 60 attempts (~4 minutes)
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: 4 * time.Second, MaxAttempts: 60}
}

// Probe checks a remote state once. attempt is zero-based.
type Probe func(ctx context.Context, attempt int) (done bool, err error)

// Run drives probe until it is done. Exhausting the attempts returns
// domain.ErrTaskTimeout.
func (p PollPolicy) Run(ctx context.Context, probe Probe) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
		done, err := probe(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return domain.ErrTaskTimeout
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
