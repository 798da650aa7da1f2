package cardinality

import (
	"github.com/flowrpc/flowrpc/codec"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

// MessageFactory builds a zero-valued message for a method; generated
// code supplies these the way it would supply request/response types to
// any other RPC framework.
type MessageFactory func() any

// ServeUnaryUnary implements §4.5's unary-unary adapter: await exactly one
// inbound message, invoke handler, send one outbound message, close 0.
func ServeUnaryUnary(s *stream.Stream, reqCodec, respCodec codec.Codec, newReq MessageFactory, h UnaryHandler) {
	defer func() {
		if p := recover(); p != nil {
			closeWithError(s, respCodec, recoverToError(p))
		}
	}()

	req, err := recvExactlyOne(s, reqCodec, newReq)
	if err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	resp, err := h(s.Context(), req)
	if err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	if err := sendEncoded(s, respCodec, resp); err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	_ = s.Close(status.OK, "")
}

// ServeUnaryStream implements the unary-stream adapter.
func ServeUnaryStream(s *stream.Stream, reqCodec, respCodec codec.Codec, newReq MessageFactory, h ServerStreamHandler) {
	defer func() {
		if p := recover(); p != nil {
			closeWithError(s, respCodec, recoverToError(p))
		}
	}()

	req, err := recvExactlyOne(s, reqCodec, newReq)
	if err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	send := func(msg any) error { return sendEncoded(s, respCodec, msg) }
	if err := h(s.Context(), req, send); err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	_ = s.Close(status.OK, "")
}

// ServeStreamUnary implements the stream-unary adapter.
func ServeStreamUnary(s *stream.Stream, reqCodec, respCodec codec.Codec, newReq MessageFactory, h ClientStreamHandler) {
	defer func() {
		if p := recover(); p != nil {
			closeWithError(s, respCodec, recoverToError(p))
		}
	}()

	recv := func() (any, bool, error) {
		data, ok, err := s.Recv()
		if err != nil || !ok {
			return nil, ok, err
		}
		req := newReq()
		if err := reqCodec.Unmarshal(data, req); err != nil {
			return nil, false, status.Newf(status.Internal, "decode request: %v", err)
		}
		return req, true, nil
	}
	resp, err := h(s.Context(), recv)
	if err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	if err := sendEncoded(s, respCodec, resp); err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	_ = s.Close(status.OK, "")
}

// ServeStreamStream implements the stream-stream adapter.
func ServeStreamStream(s *stream.Stream, reqCodec, respCodec codec.Codec, newReq MessageFactory, h BidiStreamHandler) {
	defer func() {
		if p := recover(); p != nil {
			closeWithError(s, respCodec, recoverToError(p))
		}
	}()

	recv := func() (any, bool, error) {
		data, ok, err := s.Recv()
		if err != nil || !ok {
			return nil, ok, err
		}
		req := newReq()
		if err := reqCodec.Unmarshal(data, req); err != nil {
			return nil, false, status.Newf(status.Internal, "decode request: %v", err)
		}
		return req, true, nil
	}
	send := func(msg any) error { return sendEncoded(s, respCodec, msg) }
	if err := h(s.Context(), recv, send); err != nil {
		closeWithError(s, respCodec, err)
		return
	}
	_ = s.Close(status.OK, "")
}

func sendEncoded(s *stream.Stream, c codec.Codec, msg any) error {
	data, err := c.Marshal(msg)
	if err != nil {
		return status.Newf(status.Internal, "encode response: %v", err)
	}
	return s.SendMessage(data)
}

func closeWithError(s *stream.Stream, _ codec.Codec, err error) {
	se := status.FromError(err)
	_ = s.Close(se.Code, truncate(se.Message))
}
