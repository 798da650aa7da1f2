// Package client provides the user-facing RPC channel: Dial a target and
// invoke methods through the four cardinality adapters, grounded on the
// teacher's examples/http-client-example/client request/response shape
// but speaking the real gRPC-over-HTTP/2 wire protocol via
// transport/client and stream.Stream rather than JSON-over-HTTP.
package client

import (
	"context"
	"time"

	"github.com/flowrpc/flowrpc/cardinality"
	"github.com/flowrpc/flowrpc/codec"
	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/stream"
	transportclient "github.com/flowrpc/flowrpc/transport/client"
)

// Channel is a reusable connection to one gRPC-over-HTTP/2 target.
type Channel struct {
	dialer *transportclient.Dialer
}

// DialOption configures a Channel at Dial time.
type DialOption func(*dialConfig)

type dialConfig struct {
	dialTimeout time.Duration
}

// WithDialTimeout bounds how long the underlying TCP dial may take.
func WithDialTimeout(d time.Duration) DialOption {
	return func(c *dialConfig) { c.dialTimeout = d }
}

// Dial builds a Channel targeting addr (host:port). Dial never blocks on
// network I/O itself: the underlying HTTP/2 connection is established
// lazily by the first call, matching golang.org/x/net/http2.Transport's
// own lazy-dial behavior.
func Dial(addr string, opts ...DialOption) (*Channel, error) {
	cfg := &dialConfig{dialTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	dialer := transportclient.NewDialer(addr, transportclient.WithDialTimeout(cfg.dialTimeout))
	return &Channel{dialer: dialer}, nil
}

// NewStream opens a new RPC stream for service/method, applying timeout
// (nil means no deadline beyond ctx's own) and outbound custom metadata.
func (c *Channel) NewStream(ctx context.Context, service, method string, timeout *time.Duration, md *metadata.MD) (*stream.Stream, error) {
	return c.dialer.NewStream(ctx, service, method, timeout, md)
}

// CallUnary performs a unary-unary RPC end to end.
func (c *Channel) CallUnary(ctx context.Context, service, method string, timeout *time.Duration, reqCodec, respCodec codec.Codec, req any, newResp cardinality.MessageFactory) (any, error) {
	s, err := c.NewStream(ctx, service, method, timeout, nil)
	if err != nil {
		return nil, err
	}
	return cardinality.CallUnary(s, reqCodec, respCodec, req, newResp)
}

// CallServerStream performs the request half of a unary-stream RPC and
// returns a recv function the caller pulls until it reports ok=false.
func (c *Channel) CallServerStream(ctx context.Context, service, method string, timeout *time.Duration, reqCodec, respCodec codec.Codec, req any, newResp cardinality.MessageFactory) (recv func() (any, bool, error), err error) {
	s, err := c.NewStream(ctx, service, method, timeout, nil)
	if err != nil {
		return nil, err
	}
	return cardinality.CallServerStream(s, reqCodec, respCodec, req, newResp)
}

// CallClientStream begins a stream-unary RPC; the caller drives Send and
// finishes with CloseAndRecv.
func (c *Channel) CallClientStream(ctx context.Context, service, method string, reqCodec, respCodec codec.Codec, newResp cardinality.MessageFactory) (*cardinality.ClientStreamCall, error) {
	s, err := c.NewStream(ctx, service, method, nil, nil)
	if err != nil {
		return nil, err
	}
	return cardinality.CallClientStream(s, reqCodec, respCodec, newResp), nil
}

// CallBidiStream begins a stream-stream RPC; the caller drives Send/Recv.
func (c *Channel) CallBidiStream(ctx context.Context, service, method string, reqCodec, respCodec codec.Codec, newResp cardinality.MessageFactory) (*cardinality.BidiStreamCall, error) {
	s, err := c.NewStream(ctx, service, method, nil, nil)
	if err != nil {
		return nil, err
	}
	return cardinality.CallBidiStream(s, reqCodec, respCodec, newResp), nil
}
