package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff controls how often and how patiently an operation is retried.
type Backoff struct {
	Attempts int           // total attempts including the first; default 3
	Initial  time.Duration // delay before the first retry; default 1s
	Max      time.Duration // cap on a single delay; default 30s
	Jitter   float64       // ± fraction of each delay
}

// DownloadBackoff suits large file downloads from public data portals.
func DownloadBackoff() Backoff {
	return Backoff{Attempts: 4, Initial: 2 * time.Second, Max: time.Minute, Jitter: 0.25}
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Initial <= 0 {
		b.Initial = time.Second
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	if b.Jitter < 0 {
		b.Jitter = 0
	}
	return b
}

// Delay returns the wait before retry number attempt (0-based), doubling
// each time up to Max.
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	d := float64(b.Initial) * math.Pow(2, float64(attempt))
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, returns a non-transient error, the attempts
// run out or ctx is done. The last error is returned unchanged.
func Do(ctx context.Context, b Backoff, operation string, fn func(ctx context.Context) error) error {
	b = b.withDefaults()

	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) || attempt == b.Attempts-1 {
			return err
		}

		delay := b.Delay(attempt)
		zap.L().Warn("retrying",
			zap.String("component", "resilience"),
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
