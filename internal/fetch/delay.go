package fetch

import (
	"context"
	"math/rand/v2"
	"time"
)

// Delay produces randomized pauses that mimic human browsing.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Wait sleeps for a random duration within the configured range.
func (d *Delay) Wait(ctx context.Context) error {
	return Sleep(ctx, d.Duration())
}

// Duration returns a random delay within the configured range.
func (d *Delay) Duration() time.Duration {
	if d.Min >= d.Max {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int64N(int64(d.Max-d.Min)))
}

// Sleep pauses for a fixed duration, honoring context cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the pause before retry attempt n (1-based), growing
// linearly with a random component so repeated failures do not probe
// the site on a fixed rhythm.
func Backoff(n int) time.Duration {
	base := time.Duration(n) * 2 * time.Second
	jitter := time.Duration(rand.Int64N(int64(2 * time.Second)))
	return base + jitter
}
