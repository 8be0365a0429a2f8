// Package retry implements the exponential-backoff policy used by the page
// reader, the AMQP event publisher, and the orchestrator's publication step.
// The lease and progress stores do not retry; their errors are returned to
// the caller as they occur.
package retry

import (
	"context"
	"time"
)

// Config controls the backoff schedule. InitialBackoff is the delay before
// the first retry; each subsequent delay is multiplied by BackoffMultiplier,
// up to MaxRetries attempts after the initial one.
type Config struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
}

// DefaultConfig matches the policy defaults described for the worker:
// three retries, starting at one second, doubling each time.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Do runs fn, retrying on error up to cfg.MaxRetries additional times with
// exponential backoff between attempts. It returns the last error if every
// attempt fails, or nil as soon as one attempt succeeds. ctx cancellation is
// honored both while sleeping between attempts and by returning ctx.Err()
// immediately if the context is already done before an attempt.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultConfig().InitialBackoff
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = DefaultConfig().BackoffMultiplier
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * multiplier)
	}

	return lastErr
}
