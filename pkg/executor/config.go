package executor

import (
	"context"
	"time"
)

// Config tunes the executor's concurrency, deadlines, and retry policy.
// Zero-valued fields are filled in from DefaultConfig by New.
type Config struct {
	// PerSystemConcurrency caps how many actions may run at once against
	// a single destination system (keyed by Action.System / System.Name).
	// A system with no entry runs uncapped aside from GlobalConcurrency.
	PerSystemConcurrency map[string]int

	// GlobalConcurrency caps how many actions may run at once across all
	// systems, regardless of the per-system caps above.
	GlobalConcurrency int

	// TimeoutMultiplier scales an action's estimated duration into its
	// hard deadline: deadline = action.Timeout * TimeoutMultiplier.
	TimeoutMultiplier float64

	// RetryBaseDelay, RetryMaxDelay, and RetryMaxAttempts govern the
	// exponential backoff applied to actions whose error is retryable.
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts uint

	// RateLimiter additionally throttles the rate of requests issued per
	// destination system, on top of the concurrency caps above. Nil
	// disables rate limiting.
	RateLimiter RateLimiter
}

// RateLimiter is the subset of pkg/ratelimit.Limiter the executor needs;
// declared locally so tests can fake it without importing pkg/ratelimit.
// *ratelimit.Limiter satisfies this interface as-is.
type RateLimiter interface {
	Wait(ctx context.Context, system string) error
}

// DefaultConfig mirrors spec.md §4.4's default concurrency table: two
// concurrent actions each for access-control and pms, eight for
// notifications, a 3x timeout multiplier, and the 250ms/30s/3-try retry
// envelope.
func DefaultConfig() Config {
	return Config{
		PerSystemConcurrency: map[string]int{
			"access_control": 2,
			"pms":            2,
			"notifications":  8,
		},
		GlobalConcurrency: 16,
		TimeoutMultiplier: 3.0,
		RetryBaseDelay:    250 * time.Millisecond,
		RetryMaxDelay:     30 * time.Second,
		RetryMaxAttempts:  3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PerSystemConcurrency == nil {
		c.PerSystemConcurrency = d.PerSystemConcurrency
	}
	if c.GlobalConcurrency <= 0 {
		c.GlobalConcurrency = d.GlobalConcurrency
	}
	if c.TimeoutMultiplier <= 0 {
		c.TimeoutMultiplier = d.TimeoutMultiplier
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = d.RetryMaxDelay
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = d.RetryMaxAttempts
	}
	return c
}
