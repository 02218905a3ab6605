/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// UnlimitedRetries may be used as a max retries value when retrying should be stopped only by the backoff itself
// (e.g. by its max elapsed time) or by the context.
const UnlimitedRetries = -1

// IsRetryable defines a func that can tell if error is retryable as opposed to persistent.
type IsRetryable func(error) bool

// RetryableFunc is function that does some work and can be potentially retried.
type RetryableFunc func(ctx context.Context) error

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// The PolicyFunc type is an adapter to allow the use of ordinary functions as retry.Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements retry.Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoWithRetry executes fn with retry according to policy p and with respect to context ctx.
// IsRetryable defines which errors lead to retry attempt (can be nil for any error).
// Notify can be used to receive notification on every retry with error and backoff delay
// (can be nil if no notifications required).
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	_, err := DoWithRetryAttempts(ctx, p, isRetryable, notify, fn)
	return err
}

// DoWithRetryAttempts works like DoWithRetry but also reports how many times fn was called.
// The returned error is the one produced by the last attempt (or the context error
// if the context was canceled while waiting for the next attempt).
func DoWithRetryAttempts(
	ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc,
) (attempts int, err error) {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		attempts++
		opErr := fn(bctx.Context())
		if opErr != nil && isRetryable != nil && !isRetryable(opErr) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}
	err = backoff.RetryNotify(op, bctx, notify)
	return attempts, err
}

// ExponentialBackoffPolicy means repeat up to maxRetries times with exponentially growing delays.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	multiplier      float64
	maxRetries      int
}

// NewExponentialBackoffPolicy returns an exponential backoff policy (1.5 multiplier)
// with given initial interval and max retry count.
// Zero maxRetries means no retries at all, UnlimitedRetries disables the limit.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetries int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval, backoff.DefaultMultiplier, maxRetries}
}

// WithMultiplier returns a copy of the policy with the given delay multiplier.
func (p ExponentialBackoffPolicy) WithMultiplier(multiplier float64) ExponentialBackoffPolicy {
	p.multiplier = multiplier
	return p
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.Multiplier = p.multiplier
	return withMaxRetries(eb, p.maxRetries)
}

// ConstantBackoffPolicy means repeat up to maxRetries times with constant interval delays.
type ConstantBackoffPolicy struct {
	interval   time.Duration
	maxRetries int
}

// NewConstantBackoffPolicy returns a constant backoff policy with given interval and max retry count.
// Zero maxRetries means no retries at all, UnlimitedRetries disables the limit.
func NewConstantBackoffPolicy(interval time.Duration, maxRetries int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval, maxRetries}
}

// NewBackOff implements retry.Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return withMaxRetries(backoff.NewConstantBackOff(p.interval), p.maxRetries)
}

func withMaxRetries(b backoff.BackOff, maxRetries int) backoff.BackOff {
	if maxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(maxRetries))
	}
	b.Reset()
	return b
}
