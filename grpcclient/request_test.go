/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequest_ReturnChannelOnce(t *testing.T) {
	provider := &fakeProvider{ch: &fakeChannel{target: "t"}, returnErr: errors.New("return failed")}
	req := &Request{ServiceName: "svc", MethodName: "Get", Channel: provider.ch, Provider: provider}

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = req.ReturnChannel()
		}(i)
	}
	wg.Wait()

	_, returns := provider.counts()
	require.Equal(t, 1, returns)
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	require.Equal(t, 1, failed)
}

func TestRequest_ReturnWithoutChannel(t *testing.T) {
	require.NoError(t, (&Request{}).ReturnChannel())
}

func TestRequest_FullMethod(t *testing.T) {
	req := &Request{ServiceName: "grpc.testing.TestService", MethodName: "UnaryCall"}
	require.Equal(t, "/grpc.testing.TestService/UnaryCall", req.FullMethod())
}

func TestCallType_String(t *testing.T) {
	require.Equal(t, "blocking", CallTypeBlocking.String())
	require.Equal(t, "async", CallTypeAsync.String())
	require.Equal(t, "unknown", CallTypeUnknown.String())
}

func TestTableRequestBuilder_Build(t *testing.T) {
	provider := &fakeProvider{ch: &fakeChannel{target: "t"}}
	builder := NewTableRequestBuilder("svc", provider, nil,
		MethodDescriptor{MethodName: "Get", CallType: CallTypeBlocking, NewResponse: func() interface{} { return &echoResponse{} }})

	req, err := builder.Build(context.Background(), MethodCall{MethodName: "Get", Args: []interface{}{"arg"}})
	require.NoError(t, err)
	require.Equal(t, "svc", req.ServiceName)
	require.Equal(t, "Get", req.MethodName)
	require.Equal(t, CallTypeBlocking, req.CallType)
	require.Equal(t, "arg", req.Arg)
	require.Equal(t, &echoResponse{}, req.newResponse())
	require.NotNil(t, req.Params)
	require.NotNil(t, req.Affinity)
	require.NoError(t, req.ReturnChannel())

	_, err = builder.Build(context.Background(), MethodCall{MethodName: "Put", Args: []interface{}{"arg"}})
	require.EqualError(t, err, `method "Put" is not declared in service "svc"`)

	_, err = builder.Build(context.Background(), MethodCall{MethodName: "Get"})
	require.EqualError(t, err, "method svc.Get expects exactly 1 argument, got 0")

	checkouts, returns := provider.counts()
	require.Equal(t, 1, checkouts)
	require.Equal(t, 1, returns)
	require.Equal(t, "svc", builder.String())
}

func TestAffinity(t *testing.T) {
	a := NewAffinity()
	_, ok := a.Get(AffinityKeyCurrentAddress)
	require.False(t, ok)
	a.Set(AffinityKeyCurrentAddress, "10.0.0.1:80")
	v, ok := a.Get(AffinityKeyCurrentAddress)
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:80", v)

	var nilAffinity *Affinity
	nilAffinity.Set("k", "v")
	_, ok = nilAffinity.Get("k")
	require.False(t, ok)
}
