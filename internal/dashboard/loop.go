package dashboard

import (
	"context"
	"time"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Run refreshes the feed on the configured interval until the context is
// cancelled. A failed refresh is retried with exponential backoff instead of
// waiting for the next tick.
func (d *Dashboard) Run(ctx context.Context) error {
	d.logger.Info("refresh loop started", "interval", d.opts.RefreshInterval, "window", d.Filter().Window)
	d.metrics.RefreshLoopRunning.Set(1)
	defer d.metrics.RefreshLoopRunning.Set(0)

	ticker := d.clock.NewTicker(d.opts.RefreshInterval)
	defer ticker.Stop()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := initialBackoff
	for {
		if err := d.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Error("refresh failed", "error", err, "retry_in", backoff)
			if !d.sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			d.logger.Info("refresh loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (d *Dashboard) sleepWithContext(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return true
	}

	timer := d.clock.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
