/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"github.com/acronis/go-rpcinvoker/config"
)

// CallType defines how a call is dispatched.
type CallType int

// Call types. CallTypeUnknown is dispatched asynchronously.
const (
	CallTypeUnknown CallType = iota
	CallTypeBlocking
	CallTypeAsync
)

func (t CallType) String() string {
	switch t {
	case CallTypeBlocking:
		return "blocking"
	case CallTypeAsync:
		return "async"
	}
	return "unknown"
}

// Channel is a borrowed transport handle to one remote endpoint.
// *grpc.ClientConn implements it.
type Channel interface {
	grpc.ClientConnInterface
	Target() string
}

// AffinityKeyCurrentAddress is the affinity key under which the last remote address is stored.
const AffinityKeyCurrentAddress = "current_address"

// Affinity holds routing hints shared between calls of the same client.
// It's safe for concurrent use.
type Affinity struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewAffinity creates an empty Affinity.
func NewAffinity() *Affinity {
	return &Affinity{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (a *Affinity) Get(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

// Set stores the value under key.
func (a *Affinity) Set(key, value string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.values[key] = value
	a.mu.Unlock()
}

// ChannelProvider hands out channels and takes them back.
type ChannelProvider interface {
	Checkout(ctx context.Context, affinity *Affinity) (Channel, error)
	Return(ch Channel) error
}

// MethodCall describes one method invocation made through a client stub.
type MethodCall struct {
	MethodName string
	Args       []interface{}
}

// RequestBuilder converts a method invocation into a Request.
// On success the returned Request owns a borrowed channel that is released by Request.ReturnChannel.
// On failure no channel must stay borrowed.
type RequestBuilder interface {
	Build(ctx context.Context, call MethodCall) (*Request, error)
}

// Request is a transport-neutral description of one RPC call.
// Fields must not be changed after the request is built.
type Request struct {
	ServiceName string
	MethodName  string
	CallType    CallType
	Arg         interface{}
	// NewResponse creates an empty response message the reply is decoded into.
	NewResponse func() interface{}
	Channel     Channel
	Provider    ChannelProvider
	Affinity    *Affinity
	// Params are reference parameters of the remote service (retries, fallback, validation groups, etc.).
	Params config.DataProvider

	returnOnce sync.Once
}

// FullMethod returns the gRPC method name in the "/service/method" form.
func (r *Request) FullMethod() string {
	return "/" + r.ServiceName + "/" + r.MethodName
}

// ReturnChannel returns the borrowed channel to its provider.
// Only the first call has an effect, the following ones return nil.
func (r *Request) ReturnChannel() error {
	var err error
	r.returnOnce.Do(func() {
		if r.Channel == nil || r.Provider == nil {
			return
		}
		err = r.Provider.Return(r.Channel)
	})
	return err
}

func (r *Request) newResponse() interface{} {
	if r.NewResponse == nil {
		return nil
	}
	return r.NewResponse()
}

// MethodDescriptor describes one method of a service contract.
type MethodDescriptor struct {
	MethodName  string
	CallType    CallType
	NewResponse func() interface{}
}

// TableRequestBuilder builds requests for a single service contract described by a table of methods.
// Every method is expected to take exactly one argument (the request message).
type TableRequestBuilder struct {
	serviceName string
	methods     map[string]MethodDescriptor
	provider    ChannelProvider
	params      config.DataProvider
	affinity    *Affinity
}

var _ RequestBuilder = (*TableRequestBuilder)(nil)

// NewTableRequestBuilder creates a new TableRequestBuilder.
func NewTableRequestBuilder(
	serviceName string, provider ChannelProvider, params config.DataProvider, methods ...MethodDescriptor,
) *TableRequestBuilder {
	table := make(map[string]MethodDescriptor, len(methods))
	for _, m := range methods {
		table[m.MethodName] = m
	}
	if params == nil {
		params = config.NewViperAdapter()
	}
	return &TableRequestBuilder{
		serviceName: serviceName,
		methods:     table,
		provider:    provider,
		params:      params,
		affinity:    NewAffinity(),
	}
}

// Build implements RequestBuilder.
func (b *TableRequestBuilder) Build(ctx context.Context, call MethodCall) (*Request, error) {
	desc, ok := b.methods[call.MethodName]
	if !ok {
		return nil, fmt.Errorf("method %q is not declared in service %q", call.MethodName, b.serviceName)
	}
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("method %s.%s expects exactly 1 argument, got %d",
			b.serviceName, call.MethodName, len(call.Args))
	}
	ch, err := b.provider.Checkout(ctx, b.affinity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
	}
	return &Request{
		ServiceName: b.serviceName,
		MethodName:  desc.MethodName,
		CallType:    desc.CallType,
		Arg:         call.Args[0],
		NewResponse: desc.NewResponse,
		Channel:     ch,
		Provider:    b.provider,
		Affinity:    b.affinity,
		Params:      b.params,
	}, nil
}

// String returns the name of the service the builder serves.
func (b *TableRequestBuilder) String() string {
	return b.serviceName
}
