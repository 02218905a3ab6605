/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/acronis/go-rpcinvoker/log"
)

type circuitBreaker = gobreaker.CircuitBreaker[interface{}]

// breakerRegistry keeps one circuit breaker per service method.
type breakerRegistry struct {
	cfg      BreakerConfig
	logger   log.FieldLogger
	breakers sync.Map // string -> *circuitBreaker
}

func newBreakerRegistry(cfg BreakerConfig, logger log.FieldLogger) *breakerRegistry {
	return &breakerRegistry{cfg: cfg, logger: logger}
}

func (r *breakerRegistry) breakerFor(serviceName, methodName string) *circuitBreaker {
	key := ConcurrencyKey(serviceName, methodName)
	if cb, ok := r.breakers.Load(key); ok {
		return cb.(*circuitBreaker)
	}
	cb, _ := r.breakers.LoadOrStore(key, r.newBreaker(key))
	return cb.(*circuitBreaker)
}

func (r *breakerRegistry) newBreaker(name string) *circuitBreaker {
	consecutiveFailures := r.cfg.ConsecutiveFailures
	if consecutiveFailures == 0 {
		consecutiveFailures = defaultBreakerConsecutiveFailures
	}
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: r.cfg.MaxRequests,
		Interval:    time.Duration(r.cfg.Interval),
		Timeout:     time.Duration(r.cfg.Timeout),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Warn("circuit breaker state changed",
				log.String("breaker", name), log.String("from", from.String()), log.String("to", to.String()))
		},
		IsSuccessful: isBreakerSuccess,
	})
}

// isBreakerSuccess reports whether the call result should not be counted as a failure of the remote side.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal,
		codes.Unknown, codes.DeadlineExceeded, codes.DataLoss:
		return false
	}
	return true
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
