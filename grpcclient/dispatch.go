/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-rpcinvoker/grpcclient/monitor"
	"github.com/acronis/go-rpcinvoker/log"
)

// FallbackFunc produces the result of a call when the circuit breaker is open or the call failed
// and fallback is enabled for the method. cause is the breaker rejection or the last call error.
type FallbackFunc func(ctx context.Context, req *Request, cause error) (interface{}, error)

// DefaultFallback returns an empty response message.
func DefaultFallback(_ context.Context, req *Request, _ error) (interface{}, error) {
	return req.newResponse(), nil
}

// Future is a handle of an asynchronously dispatched call.
type Future struct {
	done chan struct{}
	resp interface{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func newResolvedFuture(resp interface{}, err error) *Future {
	f := newFuture()
	f.resolve(resp, err)
	return f
}

func (f *Future) resolve(resp interface{}, err error) {
	f.resp, f.err = resp, err
	close(f.done)
}

// Done returns a channel that is closed when the call is completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the call is completed or ctx is done.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the result of the call without waiting.
// ErrFutureNotCompleted is returned if the call is still in progress.
func (f *Future) Result() (interface{}, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	default:
		return nil, ErrFutureNotCompleted
	}
}

// dispatchStrategy executes one call through the circuit breaker.
// Blocking mode runs the call on the caller goroutine, the other modes start it on a new goroutine
// and hand out a *Future.
type dispatchStrategy struct {
	mode     CallType
	call     *ClientCall
	req      *Request
	counter  *atomic.Int32
	sink     monitor.Sink
	policy   Policy
	breaker  *circuitBreaker
	fallback FallbackFunc
	logger   log.FieldLogger

	// onComplete is called after an asynchronous call is completed.
	onComplete func()
}

func (d *dispatchStrategy) execute(ctx context.Context) (interface{}, error) {
	if d.mode == CallTypeBlocking {
		return d.run(ctx)
	}
	future := newFuture()
	go func() {
		var resp interface{}
		var err error
		defer func() {
			if p := recover(); p != nil {
				const logStackSize = 8192
				stack := make([]byte, logStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				d.logger.Error(fmt.Sprintf("panic in async rpc call: %+v", p), log.Bytes("stack", stack))
				resp, err = nil, fmt.Errorf("panic in async rpc call: %v", p)
			}
			if d.onComplete != nil {
				d.onComplete()
			}
			future.resolve(resp, err)
		}()
		resp, err = d.run(ctx)
	}()
	return future, nil
}

func (d *dispatchStrategy) run(ctx context.Context) (interface{}, error) {
	obs := monitor.CallObservation{
		ServiceName: d.req.ServiceName,
		MethodName:  d.req.MethodName,
		Outcome:     monitor.OutcomeFailure,
		Concurrency: d.counter.Load(),
		StartTime:   time.Now(),
	}
	defer func() {
		obs.RemoteAddress = d.call.RemoteAddress()
		d.sink.ObserveCall(obs)
	}()

	resp, err := d.breaker.Execute(func() (interface{}, error) {
		r, attempts, callErr := d.call.Invoke(ctx, d.req)
		obs.Attempts = attempts
		return r, callErr
	})
	if err == nil {
		obs.Outcome = monitor.OutcomeSuccess
		return resp, nil
	}

	if d.policy.FallbackEnabled {
		d.logger.Warn("rpc call is served by fallback",
			log.String("service", d.req.ServiceName), log.String("method", d.req.MethodName), log.Error(err))
		fbResp, fbErr := d.fallback(ctx, d.req, err)
		if fbErr != nil {
			return nil, fbErr
		}
		obs.Outcome = monitor.OutcomeFallback
		return fbResp, nil
	}

	if isBreakerRejection(err) {
		obs.Outcome = monitor.OutcomeRejected
		return nil, &BreakerOpenError{ServiceName: d.req.ServiceName, MethodName: d.req.MethodName, Inner: err}
	}
	return nil, &DispatchFailure{
		ServiceName: d.req.ServiceName, MethodName: d.req.MethodName, Attempts: obs.Attempts, Inner: err,
	}
}
