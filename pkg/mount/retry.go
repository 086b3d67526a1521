package mount

import (
	"context"
	"errors"
	"log"
	"time"
)

// RetryConfig bounds how a transient command failure is retried.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first
	MaxRetries int

	// InitialDelay is the wait before the first retry
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts
	Multiplier float64
}

// DefaultRetryConfig returns conservative settings for a mount on a local
// network link.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryCommand runs fn with exponential backoff. A TimeoutError from fn is
// returned as-is rather than retried; repeating a full grace-period wait
// would stall the tracking loop. Any other persistent failure is wrapped in
// a CommError carrying the attempt count.
func RetryCommand(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("Retrying %s (attempt %d/%d) after %v", op, attempt, cfg.MaxRetries, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		var timeoutErr *TimeoutError
		if errors.As(lastErr, &timeoutErr) {
			return lastErr
		}
	}

	return &CommError{Op: op, Attempts: cfg.MaxRetries + 1, Err: lastErr}
}
