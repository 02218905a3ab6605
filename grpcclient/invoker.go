/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/acronis/go-rpcinvoker/grpcclient/monitor"
	"github.com/acronis/go-rpcinvoker/grpcclient/validation"
	"github.com/acronis/go-rpcinvoker/log"
)

// LoggerProvider returns a logger for the given call context.
type LoggerProvider func(ctx context.Context) log.FieldLogger

// InvokerOpts contains optional parameters for constructing Invoker.
type InvokerOpts struct {
	// Logger is used when LoggerProvider is not set or returns nil. Logging is disabled by default.
	Logger         log.FieldLogger
	LoggerProvider LoggerProvider

	// Validator checks call arguments. validation.Default() is used if not set.
	Validator *validation.Validator

	// Metrics receives observations of every dispatched call. Nothing is collected if not set.
	Metrics monitor.Sink

	// Fallback produces results for methods with enabled fallback. DefaultFallback is used if not set.
	Fallback FallbackFunc

	// Tracker counts in-flight calls. A new tracker is created if not set.
	Tracker *ConcurrencyTracker

	// Config contains circuit breaker settings and the async cleanup mode. NewDefaultConfig() is used if not set.
	Config *Config
}

// Invoker turns method invocations into RPC calls.
// Each invocation is built into a Request, validated, resolved into a Policy, counted by ConcurrencyTracker and
// dispatched through the circuit breaker of its service method. The borrowed channel and the counter
// are released exactly once on every path.
// Invoker is safe for concurrent use.
type Invoker struct {
	builder        RequestBuilder
	logger         log.FieldLogger
	loggerProvider LoggerProvider
	validator      *validation.Validator
	resolver       PolicyResolver
	tracker        *ConcurrencyTracker
	breakers       *breakerRegistry
	sink           monitor.Sink
	fallback       FallbackFunc
	asyncCleanup   AsyncCleanupMode
}

// NewInvoker creates a new Invoker with default options.
func NewInvoker(builder RequestBuilder) *Invoker {
	return NewInvokerWithOpts(builder, InvokerOpts{})
}

// NewInvokerWithOpts creates a new Invoker with an ability to specify different optional parameters.
func NewInvokerWithOpts(builder RequestBuilder, opts InvokerOpts) *Invoker {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Validator == nil {
		opts.Validator = validation.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitor.NewDisabledSink()
	}
	if opts.Fallback == nil {
		opts.Fallback = DefaultFallback
	}
	if opts.Tracker == nil {
		opts.Tracker = NewConcurrencyTracker()
	}
	if opts.Config == nil {
		opts.Config = NewDefaultConfig()
	}
	asyncCleanup := opts.Config.AsyncCleanup
	if asyncCleanup == "" {
		asyncCleanup = AsyncCleanupOnReturn
	}
	return &Invoker{
		builder:        builder,
		logger:         opts.Logger,
		loggerProvider: opts.LoggerProvider,
		validator:      opts.Validator,
		tracker:        opts.Tracker,
		breakers:       newBreakerRegistry(opts.Config.Breaker, opts.Logger),
		sink:           opts.Metrics,
		fallback:       opts.Fallback,
		asyncCleanup:   asyncCleanup,
	}
}

// Tracker returns the tracker of in-flight calls.
func (inv *Invoker) Tracker() *ConcurrencyTracker {
	return inv.tracker
}

// String returns a human-readable description of the invoker.
func (inv *Invoker) String() string {
	if s, ok := inv.builder.(fmt.Stringer); ok {
		return fmt.Sprintf("grpcclient.Invoker(%s)", s.String())
	}
	return "grpcclient.Invoker"
}

// Invoke makes the call. For blocking methods it returns the response message,
// for asynchronous ones (and methods with unknown call type) it returns a *Future.
// Calls of String and GoString without arguments are answered locally by Invoker.String.
func (inv *Invoker) Invoke(ctx context.Context, call MethodCall) (interface{}, error) {
	if isIdentityCall(call) {
		return inv.String(), nil
	}

	req, err := inv.builder.Build(ctx, call)
	if err != nil {
		return nil, err
	}
	logger := inv.loggerFor(ctx)

	if err = inv.validate(ctx, req); err != nil {
		inv.returnChannel(logger, req)
		return nil, err
	}

	policy, err := inv.resolver.Resolve(req.MethodName, req.Params)
	if err != nil {
		inv.returnChannel(logger, req)
		return nil, err
	}

	clientCall, err := NewClientCall(req.Channel, policy.Retries, req.Params, req.Affinity, logger)
	if err != nil {
		inv.returnChannel(logger, req)
		return nil, err
	}

	counter := inv.tracker.CounterFor(req.ServiceName, req.MethodName)
	counter.Inc()
	inv.sink.IncInFlightCalls(req.ServiceName, req.MethodName)

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			defer counter.Dec()
			logger.Info("rpc call finished",
				log.String("service", req.ServiceName),
				log.String("method", req.MethodName),
				log.String("remote_address", clientCall.RemoteAddress()),
			)
			inv.returnChannel(logger, req)
			recoverCleanupStep(logger, req, "failed to decrement in-flight calls metric", func() {
				inv.sink.DecInFlightCalls(req.ServiceName, req.MethodName)
			})
		})
	}

	strategy := &dispatchStrategy{
		mode:     req.CallType,
		call:     clientCall,
		req:      req,
		counter:  counter,
		sink:     inv.sink,
		policy:   policy,
		breaker:  inv.breakers.breakerFor(req.ServiceName, req.MethodName),
		fallback: inv.fallback,
		logger:   logger,
	}
	cleanupDeferred := false
	if req.CallType != CallTypeBlocking && inv.asyncCleanup == AsyncCleanupOnCompletion {
		strategy.onComplete = cleanup
		cleanupDeferred = true
	}
	defer func() {
		if p := recover(); p != nil {
			cleanup()
			panic(p)
		}
		// The strategy owns the cleanup once an asynchronous call is started.
		if !cleanupDeferred {
			cleanup()
		}
	}()
	return strategy.execute(ctx)
}

// InvokeBlocking makes the call and waits for its result even if the method is asynchronous.
func (inv *Invoker) InvokeBlocking(ctx context.Context, call MethodCall) (interface{}, error) {
	result, err := inv.Invoke(ctx, call)
	if err != nil {
		return nil, err
	}
	if future, ok := result.(*Future); ok {
		return future.Wait(ctx)
	}
	return result, nil
}

// InvokeAsync makes the call and always returns a *Future.
// Errors that occur before the call is dispatched (e.g. validation errors) are returned directly.
func (inv *Invoker) InvokeAsync(ctx context.Context, call MethodCall) (*Future, error) {
	result, err := inv.Invoke(ctx, call)
	if err != nil {
		return nil, err
	}
	if future, ok := result.(*Future); ok {
		return future, nil
	}
	return newResolvedFuture(result, nil), nil
}

func (inv *Invoker) validate(ctx context.Context, req *Request) error {
	rawGroups, err := paramString(req.Params, ParamValidatorGroups)
	if err != nil {
		return err
	}
	err = inv.validator.Validate(ctx, req.Arg, validation.ParseGroups(rawGroups))
	var groupErr *validation.UnknownGroupError
	if errors.As(err, &groupErr) {
		return &ConfigurationError{Key: ParamValidatorGroups, Inner: err}
	}
	return err
}

func (inv *Invoker) returnChannel(logger log.FieldLogger, req *Request) {
	recoverCleanupStep(logger, req, "failed to return channel", func() {
		if err := req.ReturnChannel(); err != nil {
			logger.Error("failed to return channel",
				log.String("service", req.ServiceName), log.String("method", req.MethodName), log.Error(err))
		}
	})
}

// recoverCleanupStep runs one cleanup step. A panic in it is logged with msg and does not
// prevent the remaining steps or replace the result of the call.
func recoverCleanupStep(logger log.FieldLogger, req *Request, msg string, step func()) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			logger.Error(msg,
				log.String("service", req.ServiceName), log.String("method", req.MethodName),
				log.Error(fmt.Errorf("panic: %v", p)), log.Bytes("stack", stack))
		}
	}()
	step()
}

func (inv *Invoker) loggerFor(ctx context.Context) log.FieldLogger {
	if inv.loggerProvider != nil {
		if l := inv.loggerProvider(ctx); l != nil {
			return l
		}
	}
	return inv.logger
}

func isIdentityCall(call MethodCall) bool {
	return len(call.Args) == 0 && (call.MethodName == "String" || call.MethodName == "GoString")
}
