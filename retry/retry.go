// Package retry wraps fallible remote calls with bounded, fixed-delay retries.
//
// Only failures explicitly marked transient (rate limiting, resource
// conflicts) are retried; everything else aborts on the first attempt.
// The policy is intentionally simple: no jitter, no exponential growth.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted reports that every allowed attempt failed with a transient error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts uint64
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultPolicy mirrors the service defaults: three attempts, 30s apart.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: 30 * time.Second}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as safe to retry. Operations return Transient(err) for
// rate-limit or conflict responses and the bare error for everything else.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Do invokes op under p, sleeping p.Delay between transient failures.
// It returns op's value on success, the original error for non-transient
// failures, and an error wrapping ErrExhausted once attempts run out.
func Do[T any](ctx context.Context, logger *slog.Logger, name string, p Policy, op func() (T, error)) (T, error) {
	return doWithTimer(ctx, logger, name, p, op, nil)
}

func doWithTimer[T any](ctx context.Context, logger *slog.Logger, name string, p Policy, op func() (T, error), timer backoff.Timer) (T, error) {
	var out T
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.Delay == 0 {
		p.Delay = DefaultPolicy.Delay
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), p.MaxAttempts-1),
		ctx,
	)

	attempt := 0
	err := backoff.RetryNotifyWithTimer(func() error {
		attempt++
		v, opErr := op()
		if opErr == nil {
			out = v
			return nil
		}
		if IsTransient(opErr) {
			return opErr
		}
		return backoff.Permanent(opErr)
	}, policy, func(cause error, wait time.Duration) {
		logger.Warn("transient failure, backing off",
			"op", name, "attempt", attempt, "wait", wait, "error", cause)
	}, timer)

	if err == nil {
		return out, nil
	}
	if IsTransient(err) {
		return out, fmt.Errorf("%w: %s failed %d times: %v", ErrExhausted, name, attempt, err)
	}
	return out, err
}
