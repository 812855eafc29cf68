package scraper

import (
	"context"
	"time"
)

const maxPollInterval = 2 * time.Second

// poll calls check until it reports done, an error, or ctx ends. The wait
// between calls starts at interval and grows by half each round up to
// maxPollInterval.
func poll(ctx context.Context, interval time.Duration, check func() (bool, error)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		timer.Reset(interval)
		interval += interval / 2
		if interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}
