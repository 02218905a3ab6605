/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package grpcclient provides Invoker, the client-side orchestrator of RPC calls.
//
// A client stub describes every invocation as a MethodCall and passes it to Invoker.Invoke.
// Invoker builds a Request using a RequestBuilder (TableRequestBuilder covers the common case of one
// service contract), validates its argument (see the validation package), resolves the retry and fallback
// Policy from the reference parameters of the service, counts the call in ConcurrencyTracker and dispatches it
// through a per-method circuit breaker, either blocking or asynchronously.
//
// Reference parameters:
//
//	method.retries    default retry count (0)
//	retry.methods     comma-separated list of methods the retry count applies to (empty)
//	retry.interval    initial delay between retry attempts (100ms)
//	fallback.enable   default fallback flag (false)
//	fallback.methods  comma-separated list of methods fallback applies to (empty means all)
//	validator.groups  semicolon-separated list of constraint groups (empty means default)
//	monitorinterval   interval of flushing aggregated call stats, seconds (60)
//
// Example:
//
//	pool, _ := channelpool.New(channelpool.NewDefaultConfig("localhost:9090"))
//	params := config.NewViperAdapterFromMap(map[string]interface{}{
//		"method.retries": 3,
//		"retry.methods":  "GetUser",
//	})
//	builder := grpcclient.NewTableRequestBuilder("users.UserService", pool, params,
//		grpcclient.MethodDescriptor{
//			MethodName:  "GetUser",
//			CallType:    grpcclient.CallTypeBlocking,
//			NewResponse: func() interface{} { return new(userspb.User) },
//		})
//	invoker := grpcclient.NewInvokerWithOpts(builder, grpcclient.InvokerOpts{Logger: logger})
//	resp, err := invoker.Invoke(ctx, grpcclient.MethodCall{
//		MethodName: "GetUser",
//		Args:       []interface{}{&userspb.GetUserRequest{Id: "42"}},
//	})
package grpcclient
