// Package retry wraps github.com/cenkalti/backoff/v4 into a single
// apperr-aware retry helper (spec §7: "Transient means a retryable
// infrastructure failure"), grounded on the teacher's dolt storage
// backend's retry wrapper (internal/storage/dolt/store.go).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentmem/agentmem/internal/apperr"
)

// DefaultMaxElapsed bounds the total retry window, matching the
// teacher's serverRetryMaxElapsed.
const DefaultMaxElapsed = 30 * time.Second

// Config tunes the retry loop.
type Config struct {
	MaxElapsed time.Duration
}

// DefaultConfig returns the spec-aligned default retry window.
func DefaultConfig() Config {
	return Config{MaxElapsed: DefaultMaxElapsed}
}

func newBackOff(cfg Config) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	return bo
}

// Do retries op while it returns an apperr.Transient error, up to
// cfg.MaxElapsed. Any other error (or a nil error) stops retrying
// immediately. ctx cancellation stops retrying and returns ctx.Err().
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	bo := newBackOff(cfg)
	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if apperr.Is(err, apperr.Transient) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}
