/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/acronis/go-rpcinvoker/config"
	"github.com/acronis/go-rpcinvoker/grpcclient/monitor"
	"github.com/acronis/go-rpcinvoker/log/logtest"
)

const (
	testServiceName = "test.EchoService"
	testRemoteAddr  = "10.0.0.7:9090"
)

type echoRequest struct {
	Message string `json:"message" validate:"required" strict:"max=5"`
}

func (echoRequest) DeclaresConstraints() {}

type echoResponse struct {
	Message string
}

type handlerFunc func(ctx context.Context, method string, args, reply interface{}) error

func echoHandler(_ context.Context, _ string, args, reply interface{}) error {
	reply.(*echoResponse).Message = args.(*echoRequest).Message
	return nil
}

type fakeChannel struct {
	target  string
	addr    net.Addr
	handler handlerFunc
	calls   atomic.Int32
}

func (c *fakeChannel) Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	c.calls.Inc()
	for _, opt := range opts {
		if po, ok := opt.(grpc.PeerCallOption); ok && c.addr != nil {
			*po.PeerAddr = peer.Peer{Addr: c.addr}
		}
	}
	if c.handler == nil {
		return nil
	}
	return c.handler(ctx, method, args, reply)
}

func (c *fakeChannel) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams are not supported")
}

func (c *fakeChannel) Target() string {
	return c.target
}

type fakeProvider struct {
	ch          *fakeChannel
	checkoutErr error
	returnErr   error
	returnPanic interface{}

	mu        sync.Mutex
	checkouts int
	returns   int
}

func (p *fakeProvider) Checkout(_ context.Context, _ *Affinity) (Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkoutErr != nil {
		return nil, p.checkoutErr
	}
	p.checkouts++
	return p.ch, nil
}

func (p *fakeProvider) Return(Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.returns++
	if p.returnPanic != nil {
		panic(p.returnPanic)
	}
	return p.returnErr
}

func (p *fakeProvider) counts() (checkouts, returns int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkouts, p.returns
}

type testEnv struct {
	channel     *fakeChannel
	provider    *fakeProvider
	params      *config.ViperAdapter
	logRecorder *logtest.Recorder
	monitor     *monitor.Monitor
	invoker     *Invoker
}

func newTestEnv(
	t *testing.T, callType CallType, params map[string]interface{}, handler handlerFunc, optsFn func(opts *InvokerOpts),
) *testEnv {
	t.Helper()
	ch := &fakeChannel{target: "test-target", addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 9090}, handler: handler}
	provider := &fakeProvider{ch: ch}
	va := config.NewViperAdapterFromMap(params)
	newResp := func() interface{} { return &echoResponse{} }
	builder := NewTableRequestBuilder(testServiceName, provider, va,
		MethodDescriptor{MethodName: "Echo", CallType: callType, NewResponse: newResp},
		MethodDescriptor{MethodName: "Ping", CallType: callType, NewResponse: newResp},
	)
	logRecorder := logtest.NewRecorder()
	mon := monitor.NewMonitor(logRecorder, nil)
	opts := InvokerOpts{Logger: logRecorder, Metrics: mon}
	if optsFn != nil {
		optsFn(&opts)
	}
	return &testEnv{
		channel:     ch,
		provider:    provider,
		params:      va,
		logRecorder: logRecorder,
		monitor:     mon,
		invoker:     NewInvokerWithOpts(builder, opts),
	}
}

func echoCall(msg string) MethodCall {
	return MethodCall{MethodName: "Echo", Args: []interface{}{&echoRequest{Message: msg}}}
}
