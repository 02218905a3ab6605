/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package netutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCustomDNSResolver_RoundRobin(t *testing.T) {
	var addrs []string
	for i := 0; i < 2; i++ {
		pc, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { require.NoError(t, pc.Close()) }()
		addrs = append(addrs, pc.LocalAddr().String())
	}

	resolver := NewCustomDNSResolver(addrs, time.Second)
	require.NotSame(t, net.DefaultResolver, resolver)
	require.True(t, resolver.PreferGo)

	for i := 0; i < 4; i++ {
		conn, err := resolver.Dial(context.Background(), "udp", "ignored:53")
		require.NoError(t, err)
		require.Equal(t, addrs[i%2], conn.RemoteAddr().String())
		require.NoError(t, conn.Close())
	}
}

func TestNewCustomDNSResolver_NoServers(t *testing.T) {
	require.Same(t, net.DefaultResolver, NewCustomDNSResolver(nil, time.Second))
}

func TestNewContextDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { require.NoError(t, ln.Close()) }()

	accepted := make(chan struct{})
	go func() {
		if conn, acceptErr := ln.Accept(); acceptErr == nil {
			_ = conn.Close()
		}
		close(accepted)
	}()

	dial := NewContextDialer(net.DefaultResolver, time.Second)
	conn, err := dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	require.Equal(t, ln.Addr().String(), conn.RemoteAddr().String())
	require.NoError(t, conn.Close())
	<-accepted
}
