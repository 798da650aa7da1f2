package stream

import (
	"time"

	"github.com/flowrpc/flowrpc/metadata"
)

// Event is the tagged variant of occurrences observed by either peer on an
// RpcStream, per the data model in §3. Each concrete type below is one
// variant; callers type-switch on it.
type Event interface {
	eventStreamID() uint64
}

// RequestReceived is observed by the server (and, for symmetry, echoed to
// the client's own bookkeeping) when request headers arrive.
type RequestReceived struct {
	StreamID              uint64
	Scheme                string
	Service               string
	Method                string
	ContentType           string
	Authority             string
	Timeout               *time.Duration
	MessageEncoding       string
	MessageAcceptEncoding []string
	UserAgent             string
	MessageType           string
	CustomMetadata        *metadata.MD
}

func (e *RequestReceived) eventStreamID() uint64 { return e.StreamID }

// ResponseReceived is observed by the client when response headers arrive.
type ResponseReceived struct {
	StreamID              uint64
	ContentType           string
	MessageEncoding       string
	MessageAcceptEncoding []string
	CustomMetadata        *metadata.MD
}

func (e *ResponseReceived) eventStreamID() uint64 { return e.StreamID }

// MessageReceived carries the bytes of one complete gRPC frame payload.
type MessageReceived struct {
	StreamID uint64
	Data     []byte
}

func (e *MessageReceived) eventStreamID() uint64 { return e.StreamID }

// RequestEnded is the server-side terminal event: the client half-closed
// its request stream.
type RequestEnded struct {
	StreamID uint64
}

func (e *RequestEnded) eventStreamID() uint64 { return e.StreamID }

// ResponseEnded is the client-side terminal event: the server closed with
// a status.
type ResponseEnded struct {
	StreamID       uint64
	Status         int
	StatusMessage  string
	CustomMetadata *metadata.MD
}

func (e *ResponseEnded) eventStreamID() uint64 { return e.StreamID }
