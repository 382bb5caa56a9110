package resilience

import (
	"math"
	"time"
)

// Retry defaults match the RETRY_* environment defaults. The breaker
// thresholds have no environment knobs.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 400 * time.Millisecond
	defaultMultiplier     = 2.0

	defaultBreakerMinRequests   = 5
	defaultBreakerFailureRatio  = 0.6
	defaultBreakerOpenTimeout   = 15 * time.Second
	defaultBreakerHalfOpenCalls = 1
)

// Config is the retry and circuit breaker policy of one Executor. Zero fields
// fall back to the defaults; a zero BreakerEnabled means no breaker.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// FromSettings builds the policy from the RETRY_MAX_ATTEMPTS,
// RETRY_INITIAL_BACKOFF_MS, RETRY_MAX_BACKOFF_MS and BREAKER_ENABLED values.
func FromSettings(maxAttempts, initialBackoffMS, maxBackoffMS int, breakerEnabled bool) Config {
	return Config{
		RetryMaxAttempts:    maxAttempts,
		RetryInitialBackoff: time.Duration(initialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(maxBackoffMS) * time.Millisecond,
		BreakerEnabled:      breakerEnabled,
	}.normalize()
}

func (c Config) normalize() Config {
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = defaultMaxAttempts
	}
	c.RetryInitialBackoff = orDuration(c.RetryInitialBackoff, defaultInitialBackoff)
	c.RetryMaxBackoff = max(orDuration(c.RetryMaxBackoff, defaultMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1 {
		c.RetryMultiplier = defaultMultiplier
	}

	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = defaultBreakerMinRequests
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = defaultBreakerFailureRatio
	}
	c.BreakerOpenTimeout = orDuration(c.BreakerOpenTimeout, defaultBreakerOpenTimeout)
	if c.BreakerHalfOpenMaxCalls == 0 {
		c.BreakerHalfOpenMaxCalls = defaultBreakerHalfOpenCalls
	}
	return c
}

// backoff is the wait after failed attempt n (1-based), capped at
// RetryMaxBackoff.
func (c Config) backoff(attempt int) time.Duration {
	wait := float64(c.RetryInitialBackoff) * math.Pow(c.RetryMultiplier, float64(attempt-1))
	if wait >= float64(c.RetryMaxBackoff) {
		return c.RetryMaxBackoff
	}
	return time.Duration(wait)
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
