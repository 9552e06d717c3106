// Package retry wraps exchange calls with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"cryptoSpotBot/internal/ports"
)

const (
	defaultMaxAttempts  = 5
	defaultInitialDelay = 10 * time.Second
	defaultMultiplier   = 2.0
)

// Config holds the backoff parameters for a Policy.
type Config struct {
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration // delay before the second attempt
	Multiplier   float64       // delay growth factor per attempt
	Logger       ports.Logger
}

// Policy retries transient failures with exponential backoff. Transient is
// decided by ports.IsTransient; anything else surfaces immediately so that
// validation and authentication failures are never re-attempted.
type Policy struct {
	maxAttempts  int
	initialDelay time.Duration
	multiplier   float64
	logger       ports.Logger

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a retry policy, filling unset parameters with defaults.
func New(cfg Config) (*Policy, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for retry policy")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = defaultMultiplier
	}
	return &Policy{
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: cfg.InitialDelay,
		multiplier:   cfg.Multiplier,
		logger:       cfg.Logger,
		sleep:        sleepCtx,
	}, nil
}

// Do invokes fn, retrying transient failures until an attempt succeeds or
// the attempt budget is spent. A success on any attempt returns immediately.
// On exhaustion the returned error wraps the last underlying failure.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !ports.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts {
			break
		}

		p.logger.Warn(ctx, op+": transient failure, retrying", map[string]interface{}{
			"attempt": attempt,
			"of":      p.maxAttempts,
			"delay":   delay.String(),
			"error":   lastErr.Error(),
		})
		if err := p.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s canceled while backing off: %w", op, err)
		}
		delay = time.Duration(float64(delay) * p.multiplier)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, p.maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
