/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package netutil contains dialing helpers for client connections.
package netutil

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// NewCustomDNSResolver creates a resolver that sends DNS queries to the given servers in round-robin order.
// Empty addrs means the system resolver.
func NewCustomDNSResolver(addrs []string, timeout time.Duration) *net.Resolver {
	if len(addrs) == 0 {
		return net.DefaultResolver
	}
	addrs = append([]string(nil), addrs...)
	var idx atomic.Uint32
	addrsLen := uint32(len(addrs)) //nolint:gosec // server count is reasonable

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			addr := addrs[(idx.Add(1)-1)%addrsLen]
			return d.DialContext(ctx, "udp", addr)
		},
	}
}

// NewContextDialer returns a TCP dial function (see grpc.WithContextDialer)
// that resolves host names with the given resolver.
func NewContextDialer(resolver *net.Resolver, timeout time.Duration) func(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout, Resolver: resolver}
	return func(ctx context.Context, addr string) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}
}
