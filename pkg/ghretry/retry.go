// Package ghretry wraps GitHub API calls with rate-limit-aware retries.
//
// Errors are classified once, at the boundary where the API call result is
// received: rate-limited responses (primary or secondary) are transient and
// eligible for retry, everything else propagates immediately.
package ghretry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

type Config struct {
	MaxAttempts int           // total attempts, including the first (default: 5)
	BaseDelay   time.Duration // exponential backoff base (default: 1s)

	// Test seams. Nil means the real implementation.
	now    func() time.Time
	jitter func() time.Duration
	sleep  func(context.Context, time.Duration) error
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
	}
}

// secondaryFloor is the minimum backoff for a secondary rate limit that did
// not carry a Retry-After duration.
const secondaryFloor = 60 * time.Second

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 1 * time.Second
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.jitter == nil {
		c.jitter = func() time.Duration {
			return time.Duration(rand.Intn(1000)) * time.Millisecond
		}
	}
	if c.sleep == nil {
		c.sleep = sleepCtx
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExhaustedError reports a transient error that survived every retry
// attempt. It carries the last-seen rate-limit diagnostics when the remote
// provided them.
type ExhaustedError struct {
	Op       string
	Attempts int
	Resource string // X-RateLimit-Resource, if observed
	Limit    string // X-RateLimit-Limit, if observed
	Used     string // X-RateLimit-Used, if observed
	Err      error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
	if e.Resource != "" {
		msg += fmt.Sprintf(" (rate limit resource=%s limit=%s used=%s)", e.Resource, e.Limit, e.Used)
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do invokes fn until it succeeds, the error is not transient, or
// cfg.MaxAttempts attempts have been made. op names the operation for logs
// and error messages.
func Do[T any](ctx context.Context, cfg Config, op string, fn func(context.Context) (T, error)) (T, error) {
	cfg.applyDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retries", "op", op, "attempt", attempt)
			}
			return v, nil
		}

		cls := classify(err)
		if cls.kind == kindFatal {
			return zero, err
		}
		if attempt >= cfg.MaxAttempts {
			return zero, &ExhaustedError{
				Op:       op,
				Attempts: attempt,
				Resource: cls.resource,
				Limit:    cls.limit,
				Used:     cls.used,
				Err:      err,
			}
		}

		delay := cfg.delay(attempt, cls)
		slog.Info("transient error, backing off",
			"op", op,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"reason", cls.reason(),
			"error", err)
		if serr := cfg.sleep(ctx, delay); serr != nil {
			return zero, fmt.Errorf("%s: interrupted during backoff: %w", op, serr)
		}
	}
}

// delay computes how long to wait before the next attempt, in priority
// order: exact wait until the primary limit resets, then a server-specified
// Retry-After, then exponential backoff (floored at 60s for unspecified
// secondary limits).
func (c *Config) delay(attempt int, cls classification) time.Duration {
	backoff := c.BaseDelay << uint(attempt-1)

	var d time.Duration
	switch {
	case cls.hasRemaining && cls.remaining == 0 && cls.hasReset:
		d = cls.reset.Sub(c.now())
	case cls.retryAfter != nil:
		d = *cls.retryAfter
	case cls.kind == kindSecondary:
		d = backoff
		if d < secondaryFloor {
			d = secondaryFloor
		}
	default:
		d = backoff
	}

	d += c.jitter()
	if d < 0 {
		d = 0
	}
	return d
}
