package cardinality

import (
	"github.com/flowrpc/flowrpc/codec"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

// CallUnary drives a unary-unary client call to completion: send req,
// half-close, await exactly one response.
func CallUnary(s *stream.Stream, reqCodec, respCodec codec.Codec, req any, newResp MessageFactory) (any, error) {
	data, err := reqCodec.Marshal(req)
	if err != nil {
		return nil, status.Newf(status.Internal, "encode request: %v", err)
	}
	if err := s.SendMessage(data); err != nil {
		return nil, err
	}
	if err := s.CloseSend(); err != nil {
		return nil, err
	}
	respData, err := s.ReceiveMessage()
	if err != nil {
		return nil, err
	}
	resp := newResp()
	if err := respCodec.Unmarshal(respData, resp); err != nil {
		return nil, status.Newf(status.Internal, "decode response: %v", err)
	}
	return resp, nil
}

// CallServerStream sends req, half-closes, and returns a typed receive
// function the caller pulls until it reports ok=false.
func CallServerStream(s *stream.Stream, reqCodec, respCodec codec.Codec, req any, newResp MessageFactory) (recv func() (any, bool, error), err error) {
	data, err := reqCodec.Marshal(req)
	if err != nil {
		return nil, status.Newf(status.Internal, "encode request: %v", err)
	}
	if err := s.SendMessage(data); err != nil {
		return nil, err
	}
	if err := s.CloseSend(); err != nil {
		return nil, err
	}
	return func() (any, bool, error) {
		raw, ok, err := s.Recv()
		if err != nil || !ok {
			return nil, ok, err
		}
		resp := newResp()
		if err := respCodec.Unmarshal(raw, resp); err != nil {
			return nil, false, status.Newf(status.Internal, "decode response: %v", err)
		}
		return resp, true, nil
	}, nil
}

// ClientStreamCall bundles the typed send/close-and-recv operations for a
// stream-unary client call.
type ClientStreamCall struct {
	stream    *stream.Stream
	reqCodec  codec.Codec
	respCodec codec.Codec
	newResp   MessageFactory
}

// CallClientStream opens a typed sender for a stream-unary client call.
func CallClientStream(s *stream.Stream, reqCodec, respCodec codec.Codec, newResp MessageFactory) *ClientStreamCall {
	return &ClientStreamCall{stream: s, reqCodec: reqCodec, respCodec: respCodec, newResp: newResp}
}

// Send marshals and sends one request message.
func (c *ClientStreamCall) Send(req any) error {
	data, err := c.reqCodec.Marshal(req)
	if err != nil {
		return status.Newf(status.Internal, "encode request: %v", err)
	}
	return c.stream.SendMessage(data)
}

// CloseAndRecv half-closes the request stream and awaits the single
// response.
func (c *ClientStreamCall) CloseAndRecv() (any, error) {
	if err := c.stream.CloseSend(); err != nil {
		return nil, err
	}
	raw, err := c.stream.ReceiveMessage()
	if err != nil {
		return nil, err
	}
	resp := c.newResp()
	if err := c.respCodec.Unmarshal(raw, resp); err != nil {
		return nil, status.Newf(status.Internal, "decode response: %v", err)
	}
	return resp, nil
}

// BidiStreamCall bundles typed send/recv for a stream-stream client call.
type BidiStreamCall struct {
	stream    *stream.Stream
	reqCodec  codec.Codec
	respCodec codec.Codec
	newResp   MessageFactory
}

// CallBidiStream opens a typed sender/receiver pair for a bidirectional
// client call. Per §4.5, the caller is expected to run its send loop
// concurrently with its recv loop on separate goroutines.
func CallBidiStream(s *stream.Stream, reqCodec, respCodec codec.Codec, newResp MessageFactory) *BidiStreamCall {
	return &BidiStreamCall{stream: s, reqCodec: reqCodec, respCodec: respCodec, newResp: newResp}
}

func (c *BidiStreamCall) Send(req any) error {
	data, err := c.reqCodec.Marshal(req)
	if err != nil {
		return status.Newf(status.Internal, "encode request: %v", err)
	}
	return c.stream.SendMessage(data)
}

func (c *BidiStreamCall) CloseSend() error { return c.stream.CloseSend() }

func (c *BidiStreamCall) Recv() (any, bool, error) {
	raw, ok, err := c.stream.Recv()
	if err != nil || !ok {
		return nil, ok, err
	}
	resp := c.newResp()
	if err := c.respCodec.Unmarshal(raw, resp); err != nil {
		return nil, false, status.Newf(status.Internal, "decode response: %v", err)
	}
	return resp, true, nil
}
