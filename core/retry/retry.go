package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how many times a call is attempted and how long to wait in between.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles afterwards.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration
	// Timeout bounds every single attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
}

// Once is a policy that performs a single attempt.
var Once = Policy{MaxAttempts: 1}

// Delay returns the backoff before the given retry (0 = first retry).
func (p Policy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << uint(retry)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		return p.MaxDelay
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// ExhaustedError is returned when all attempts failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a permanent error, the context ends,
// or the policy runs out of attempts.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := p.attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, &ExhaustedError{Attempts: attempt, Err: errors.Join(lastErr, ctx.Err())}
			case <-timer.C:
			}
		}

		result, err := call(ctx, p.Timeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, &ExhaustedError{Attempts: attempt + 1, Err: perm.err}
		}
		if ctx.Err() != nil {
			return zero, &ExhaustedError{Attempts: attempt + 1, Err: errors.Join(err, ctx.Err())}
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Run is Do for calls without a result.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
