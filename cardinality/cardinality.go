// Package cardinality implements the four RPC shapes and their server/
// client adapters between a generic stream.Stream and a typed handler
// signature (§4.5).
package cardinality

import (
	"context"
	"fmt"

	"github.com/flowrpc/flowrpc/codec"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

// Kind is one of the four call cardinalities.
type Kind int

const (
	UnaryUnary Kind = iota
	UnaryStream
	StreamUnary
	StreamStream
)

// maxErrorMessageBytes truncates a handler panic/error's string form
// before it goes into grpc-message, per §4.5.
const maxErrorMessageBytes = 4096

func truncate(s string) string {
	if len(s) <= maxErrorMessageBytes {
		return s
	}
	return s[:maxErrorMessageBytes]
}

// UnaryHandler handles a unary-unary RPC.
type UnaryHandler func(ctx context.Context, req any) (any, error)

// ServerStreamHandler handles a unary-stream RPC: one request, many
// responses pushed via send.
type ServerStreamHandler func(ctx context.Context, req any, send func(any) error) error

// ClientStreamHandler handles a stream-unary RPC: many requests pulled via
// recv, one response returned.
type ClientStreamHandler func(ctx context.Context, recv func() (any, bool, error)) (any, error)

// BidiStreamHandler handles a stream-stream RPC.
type BidiStreamHandler func(ctx context.Context, recv func() (any, bool, error), send func(any) error) error

func recoverToError(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("%v", p)
}

// recvExactlyOne reads exactly one decoded message off s, failing with ProtocolError-shaped status if none or more than one
// arrives before RequestEnded — the unary-input rule shared by
// unary-unary and unary-stream (§4.5).
func recvExactlyOne(s *stream.Stream, reqCodec codec.Codec, newReq func() any) (any, error) {
	data, ok, err := s.Recv()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, status.New(status.Internal, "expected exactly one request message, got none")
	}
	req := newReq()
	if err := reqCodec.Unmarshal(data, req); err != nil {
		return nil, status.Newf(status.Internal, "decode request: %v", err)
	}
	if _, ok, err := s.Recv(); err != nil {
		return nil, err
	} else if ok {
		return nil, status.New(status.Internal, "expected exactly one request message, got more than one")
	}
	return req, nil
}
