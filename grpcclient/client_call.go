/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"context"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/acronis/go-rpcinvoker/config"
	"github.com/acronis/go-rpcinvoker/log"
	"github.com/acronis/go-rpcinvoker/retry"
)

// RequestIDMetadataKey is the outgoing metadata key carrying the request ID.
const RequestIDMetadataKey = "x-request-id"

// ClientCall performs a unary call over a channel with retries on transient failures.
// The remote address of the last attempt is remembered and published to the affinity.
type ClientCall struct {
	channel       Channel
	retries       int
	retryInterval time.Duration
	affinity      *Affinity
	logger        log.FieldLogger
	remoteAddress atomic.String
}

// NewClientCall creates a new ClientCall. The initial delay between attempts is read from params (retry.interval).
func NewClientCall(
	ch Channel, retries int, params config.DataProvider, affinity *Affinity, logger log.FieldLogger,
) (*ClientCall, error) {
	interval, err := paramDuration(params, ParamRetryInterval, DefaultRetryInterval)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &ClientCall{channel: ch, retries: retries, retryInterval: interval, affinity: affinity, logger: logger}, nil
}

// Retries returns the maximum number of retries.
func (c *ClientCall) Retries() int {
	return c.retries
}

// Invoke makes the call described by req. It returns the response, the number of made attempts and
// the error of the last attempt.
func (c *ClientCall) Invoke(ctx context.Context, req *Request) (resp interface{}, attempts int, err error) {
	ctx = withRequestID(ctx)
	policy := retry.NewExponentialBackoffPolicy(c.retryInterval, c.retries)
	notify := func(err error, delay time.Duration) {
		c.logger.Warn("rpc call attempt failed, retrying",
			log.String("service", req.ServiceName),
			log.String("method", req.MethodName),
			log.Duration("delay", delay),
			log.Error(err),
		)
	}
	attempts, err = retry.DoWithRetryAttempts(ctx, policy, isRetryableCallError, notify, func(ctx context.Context) error {
		attemptResp := req.newResponse()
		var p peer.Peer
		callErr := c.channel.Invoke(ctx, req.FullMethod(), req.Arg, attemptResp, grpc.Peer(&p))
		if p.Addr != nil {
			c.setRemoteAddress(p.Addr.String())
		}
		if callErr != nil {
			return callErr
		}
		resp = attemptResp
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}
	return resp, attempts, nil
}

// RemoteAddress returns the address of the endpoint that served the last attempt,
// or the channel target if no attempt reached an endpoint.
func (c *ClientCall) RemoteAddress() string {
	if addr := c.remoteAddress.Load(); addr != "" {
		return addr
	}
	if c.channel == nil {
		return ""
	}
	return c.channel.Target()
}

func (c *ClientCall) setRemoteAddress(addr string) {
	c.remoteAddress.Store(addr)
	c.affinity.Set(AffinityKeyCurrentAddress, addr)
}

func withRequestID(ctx context.Context) context.Context {
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(RequestIDMetadataKey)) != 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, xid.New().String())
}

func isRetryableCallError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal, codes.Unknown:
		return true
	}
	return false
}
