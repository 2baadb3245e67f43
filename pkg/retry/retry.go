// Package retry runs an operation with exponential backoff and optional
// jitter, bounded by attempts and by the caller's context.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config defines the backoff policy.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialDelay is the delay after the first failed attempt.
	InitialDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// Multiplier is the exponential growth factor.
	Multiplier float64
	// Jitter randomizes each delay by ±25% to avoid synchronized retries.
	Jitter bool
	// OnRetry is called before each wait, for logging.
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

// DefaultConfig retries three times with a 100ms starting delay.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (c *Config) normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: InitialDelay must be positive")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier < 1.0 {
		c.Multiplier = 2.0
	}
	return nil
}

// Func is the operation under retry.
type Func func(ctx context.Context) error

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	LastError error
	Attempts  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// Do runs fn until it succeeds, the attempts run out, or the context ends.
// Context cancellation is never retried.
func Do(ctx context.Context, config Config, fn Func) error {
	if err := config.normalize(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := config.delayFor(attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &ExhaustedError{LastError: lastErr, Attempts: config.MaxAttempts}
}

// WithAttempts runs fn with the default policy and a custom attempt budget.
func WithAttempts(ctx context.Context, maxAttempts int, fn Func) error {
	config := DefaultConfig()
	config.MaxAttempts = maxAttempts
	return Do(ctx, config, fn)
}

func (c Config) delayFor(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		if delay > time.Duration(float64(c.MaxDelay)/c.Multiplier) {
			delay = c.MaxDelay
			break
		}
		delay = time.Duration(float64(delay) * c.Multiplier)
	}
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	if c.Jitter {
		spread := int64(delay / 2)
		if spread > 0 {
			delay = delay*3/4 + time.Duration(rand.Int63n(spread))
		}
	}
	return delay
}
