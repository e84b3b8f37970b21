// Package retry re-runs fallible upstream calls on a fixed whitelist of
// transient HTTP status codes.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// DelayHinter is implemented by errors that carry a server-supplied
// Retry-After delay.
type DelayHinter interface {
	RetryDelay() time.Duration
}

var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
	524: true,
}

type Options struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 2 * time.Second
)

// Do invokes op up to MaxAttempts times. Only errors whose status is in the
// retryable set are retried; everything else, and any final-attempt error,
// propagates unmodified. The wait between attempts is the error's
// Retry-After hint when present, otherwise the fixed Delay. No backoff.
func Do[T any](ctx context.Context, op func() (T, error), opts Options) (T, error) {
	var zero T

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.sleep == nil {
		opts.sleep = sleep
	}

	for attempt := 1; ; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}

		status, retryable := statusOf(err)
		if attempt == opts.MaxAttempts || !retryable {
			return zero, err
		}

		delay := opts.Delay
		if hint, ok := delayHint(err); ok {
			delay = hint
		}

		opts.Logger.Warn("transient upstream error, retrying",
			"status", status,
			"delay", delay.String(),
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts)

		if err := opts.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func statusOf(err error) (int, bool) {
	var sc StatusCoder
	if !errors.As(err, &sc) {
		return 0, false
	}
	status := sc.HTTPStatus()
	return status, retryableStatuses[status]
}

func delayHint(err error) (time.Duration, bool) {
	var dh DelayHinter
	if !errors.As(err, &dh) {
		return 0, false
	}
	if d := dh.RetryDelay(); d > 0 {
		return d, true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
