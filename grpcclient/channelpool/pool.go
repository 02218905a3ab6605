/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package channelpool provides Pool, a grpcclient.ChannelProvider over gRPC client connections.
package channelpool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/acronis/go-rpcinvoker/grpcclient"
	"github.com/acronis/go-rpcinvoker/log"
	"github.com/acronis/go-rpcinvoker/netutil"
)

// ErrPoolClosed is returned by Checkout after the pool is closed.
var ErrPoolClosed = errors.New("channel pool is closed")

// ErrNotBorrowed is returned by Return for a channel that is not checked out from the pool.
var ErrNotBorrowed = errors.New("channel is not borrowed from the pool")

// Opts contains optional parameters for constructing Pool.
type Opts struct {
	DialOptions []grpc.DialOption
	Logger      log.FieldLogger
}

type entry struct {
	conn     *grpc.ClientConn
	borrowed int
}

// Pool keeps one client connection per target. Connections are created lazily and shared,
// since a gRPC connection multiplexes concurrent calls.
// Checkout prefers the target stored in the affinity under grpcclient.AffinityKeyCurrentAddress
// and distributes the other calls round-robin.
// With custom DNS servers configured, targets without a scheme bypass the gRPC resolver
// and host names are resolved by the pool's dialer.
type Pool struct {
	targets     []string
	dialOpts    []grpc.DialOption
	passthrough bool
	logger      log.FieldLogger

	mu      sync.Mutex
	entries map[string]*entry
	next    int
	closed  bool
}

var _ grpcclient.ChannelProvider = (*Pool)(nil)

// New creates a new Pool.
func New(cfg *Config) (*Pool, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new Pool with an ability to specify different optional parameters.
func NewWithOpts(cfg *Config, opts Opts) (*Pool, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("at least one target should be specified")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	var creds credentials.TransportCredentials
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewClientTLSFromCert(nil, "")
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	passthrough := len(cfg.DNS.Servers) != 0
	if passthrough {
		dnsTimeout := time.Duration(cfg.DNS.Timeout)
		if dnsTimeout <= 0 {
			dnsTimeout = DefaultDNSTimeout
		}
		resolver := netutil.NewCustomDNSResolver(cfg.DNS.Servers, dnsTimeout)
		dialOpts = append(dialOpts, grpc.WithContextDialer(netutil.NewContextDialer(resolver, dnsTimeout)))
	}
	dialOpts = append(dialOpts, opts.DialOptions...)
	return &Pool{
		targets:     append([]string(nil), cfg.Targets...),
		dialOpts:    dialOpts,
		passthrough: passthrough,
		logger:      opts.Logger,
		entries:     make(map[string]*entry),
	}, nil
}

func (p *Pool) dialTarget(target string) string {
	if p.passthrough && !strings.Contains(target, "://") {
		return "passthrough:///" + target
	}
	return target
}

// Checkout implements grpcclient.ChannelProvider.
func (p *Pool) Checkout(_ context.Context, affinity *grpcclient.Affinity) (grpcclient.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	target := p.pickTargetLocked(affinity)
	e, ok := p.entries[target]
	if !ok {
		conn, err := grpc.NewClient(p.dialTarget(target), p.dialOpts...)
		if err != nil {
			return nil, fmt.Errorf("create client connection for %q: %w", target, err)
		}
		e = &entry{conn: conn}
		p.entries[target] = e
		p.logger.Debug("client connection created", log.String("target", target))
	}
	e.borrowed++
	return e.conn, nil
}

func (p *Pool) pickTargetLocked(affinity *grpcclient.Affinity) string {
	if addr, ok := affinity.Get(grpcclient.AffinityKeyCurrentAddress); ok {
		for _, t := range p.targets {
			if t == addr {
				return t
			}
		}
	}
	t := p.targets[p.next%len(p.targets)]
	p.next++
	return t
}

// Return implements grpcclient.ChannelProvider.
func (p *Pool) Return(ch grpcclient.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := ch.(*grpc.ClientConn)
	if !ok {
		return ErrNotBorrowed
	}
	for _, e := range p.entries {
		if e.conn == conn {
			if e.borrowed == 0 {
				return ErrNotBorrowed
			}
			e.borrowed--
			return nil
		}
	}
	return ErrNotBorrowed
}

// Borrowed returns the number of currently checked out channels.
func (p *Pool) Borrowed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		n += e.borrowed
	}
	return n
}

// Close closes all connections. Channels borrowed at this moment become unusable.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for target, e := range p.entries {
		if e.borrowed != 0 {
			p.logger.Warn("closing client connection that is still borrowed",
				log.String("target", target), log.Int("borrowed", e.borrowed))
		}
		if err := e.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client connection for %q: %w", target, err))
		}
	}
	return errors.Join(errs...)
}
