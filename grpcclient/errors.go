/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"errors"
	"fmt"
)

// ErrChannelUnavailable is returned when no channel can be checked out for a request.
var ErrChannelUnavailable = errors.New("channel unavailable")

// ErrFutureNotCompleted is returned by Future.Result while the call is in progress.
var ErrFutureNotCompleted = errors.New("future is not completed")

// ConfigurationError is returned when reference parameters cannot be resolved.
// It's fatal for the call and never retried.
type ConfigurationError struct {
	Key   string
	Inner error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration (key %q): %s", e.Key, e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *ConfigurationError) Unwrap() error {
	return e.Inner
}

// BreakerOpenError is returned when the circuit breaker rejects a call and fallback is disabled.
type BreakerOpenError struct {
	ServiceName string
	MethodName  string
	Inner       error
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker for %s:%s rejected the call: %s", e.ServiceName, e.MethodName, e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *BreakerOpenError) Unwrap() error {
	return e.Inner
}

// DispatchFailure wraps the last error of a call after all retries were exhausted.
type DispatchFailure struct {
	ServiceName string
	MethodName  string
	Attempts    int
	Inner       error
}

func (e *DispatchFailure) Error() string {
	return fmt.Sprintf("call %s:%s failed after %d attempt(s): %s", e.ServiceName, e.MethodName, e.Attempts, e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *DispatchFailure) Unwrap() error {
	return e.Inner
}
