// Package server implements the server-side Connection Engine (§4.4): it
// owns the HTTP/2 connection object (golang.org/x/net/http2 + h2c) and the
// map of live streams, translates inbound HTTP/2 events into gRPC events
// scoped to a stream.Stream via the metadata and framing packages, and
// serializes outbound writes per stream.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowrpc/flowrpc/cardinality"
	"github.com/flowrpc/flowrpc/compress"
	"github.com/flowrpc/flowrpc/framing"
	"github.com/flowrpc/flowrpc/internal/interceptor"
	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/registry"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

// Options configures the Connection Engine (§6 Configuration).
type Options struct {
	MaxMessageSize       uint32
	MaxConcurrentStreams uint32
	// DefaultTimeout is applied as the stream deadline when a request
	// carries no grpc-timeout header of its own. Zero means no
	// server-imposed deadline.
	DefaultTimeout time.Duration
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxMessageSize:       framing.DefaultMaxMessageSize,
		MaxConcurrentStreams: 100,
	}
}

// Engine is the server-side Connection Engine. One Engine backs one
// listening server; it is shared across every accepted HTTP/2 connection.
type Engine struct {
	registry          *registry.Registry
	opts              Options
	logger            *zap.Logger
	unaryInterceptors []interceptor.UnaryInterceptor

	mu      sync.Mutex
	streams map[uint64]*stream.Stream
	nextID  atomic.Uint64

	draining atomic.Bool
}

// NewEngine builds an Engine dispatching into reg.
func NewEngine(reg *registry.Registry, opts Options, logger *zap.Logger, unaryInterceptors ...interceptor.UnaryInterceptor) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry:          reg,
		opts:              opts,
		logger:            logger,
		unaryInterceptors: unaryInterceptors,
		streams:           make(map[uint64]*stream.Stream),
	}
}

// Drain stops the engine from accepting new streams; in-flight streams
// are left to finish (§4.4 graceful shutdown).
func (e *Engine) Drain() { e.draining.Store(true) }

// ServeHTTP is the single http.Handler the engine presents to h2c/http2;
// one call corresponds to one HTTP/2 stream and runs as that stream's
// inbound read-loop goroutine (§5).
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.draining.Load() {
		writeTrailersOnlyError(w, status.Unavailable, "server is draining")
		return
	}

	fields := requestHeaderFields(r)
	reqHeaders, err := metadata.ParseRequestHeaders(fields)
	if err != nil {
		e.logger.Warn("protocol error parsing request headers", zap.Error(err))
		writeTrailersOnlyError(w, status.Internal, err.Error())
		return
	}

	desc, ok := e.registry.Lookup(reqHeaders.Service, reqHeaders.Method)
	if !ok {
		writeTrailersOnlyError(w, status.Unimplemented, "unknown method "+reqHeaders.Service+"/"+reqHeaders.Method)
		return
	}

	id := e.nextID.Add(2) // server-initiated ids would be even; here it's a bookkeeping counter, not wire-significant.
	correlationID := uuid.NewString()
	logger := e.logger.With(zap.String("correlation_id", correlationID), zap.Uint64("stream_id", id))
	logger.Debug("stream opened", zap.String("method", reqHeaders.Service+"/"+reqHeaders.Method))

	timeout := reqHeaders.Timeout
	if timeout == nil && e.opts.DefaultTimeout > 0 {
		d := e.opts.DefaultTimeout
		timeout = &d
	}

	event := &stream.RequestReceived{
		StreamID:              id,
		Scheme:                reqHeaders.Scheme,
		Service:               reqHeaders.Service,
		Method:                reqHeaders.Method,
		Authority:             reqHeaders.Authority,
		Timeout:               timeout,
		MessageEncoding:       reqHeaders.Encoding,
		MessageAcceptEncoding: reqHeaders.AcceptEncoding,
		UserAgent:             reqHeaders.UserAgent,
		MessageType:           reqHeaders.MessageType,
		CustomMetadata:        reqHeaders.Custom,
	}

	transport := newServerTransport(w)
	s := stream.NewServerStream(r.Context(), id, event, transport)

	e.mu.Lock()
	e.streams[id] = s
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.streams, id)
		e.mu.Unlock()
	}()

	adapterDone := make(chan struct{})
	go func() {
		defer close(adapterDone)
		e.dispatch(s, desc)
	}()

	e.pumpInbound(s, r, reqHeaders.Encoding)
	<-adapterDone
}

// dispatch launches the cardinality adapter matching desc.Kind (§4.6: "Hit
// -> construct the appropriate Cardinality Adapter and launch it as an
// independent task scoped to the stream's lifetime").
func (e *Engine) dispatch(s *stream.Stream, desc *registry.MethodDescriptor) {
	switch desc.Kind {
	case cardinality.UnaryUnary:
		handler := cardinality.UnaryHandler(desc.UnaryHandler)
		if len(e.unaryInterceptors) > 0 {
			fullMethod := "/" + s.Service + "/" + s.Method
			handler = cardinality.UnaryHandler(interceptor.Chain(fullMethod, e.unaryInterceptors, interceptor.UnaryHandler(desc.UnaryHandler)))
		}
		cardinality.ServeUnaryUnary(s, desc.RequestCodec, desc.ResponseCodec, desc.NewRequest, handler)
	case cardinality.UnaryStream:
		cardinality.ServeUnaryStream(s, desc.RequestCodec, desc.ResponseCodec, desc.NewRequest, desc.ServerStreamHandler)
	case cardinality.StreamUnary:
		cardinality.ServeStreamUnary(s, desc.RequestCodec, desc.ResponseCodec, desc.NewRequest, desc.ClientStreamHandler)
	case cardinality.StreamStream:
		cardinality.ServeStreamStream(s, desc.RequestCodec, desc.ResponseCodec, desc.NewRequest, desc.BidiStreamHandler)
	}
}

// pumpInbound is the stream's read loop: it feeds r.Body through a
// Deframer and turns each complete payload into a MessageReceived event,
// finishing with RequestEnded on EOF (§4.4).
func (e *Engine) pumpInbound(s *stream.Stream, r *http.Request, encoding string) {
	defer r.Body.Close()

	deframer := framing.NewDeframer(e.opts.MaxMessageSize)
	if encoding != "" && encoding != compress.Identity {
		if c, ok := compress.Get(encoding); ok {
			deframer.SetDecompressor(c.Decompress)
		}
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Body.Read(buf)
		if n > 0 {
			deframer.Write(buf[:n])
			for {
				payload, ok, ferr := deframer.Next()
				if ferr != nil {
					e.logger.Warn("framing error", zap.Error(ferr), zap.Uint64("stream_id", s.ID))
					s.Cancel()
					return
				}
				if !ok {
					break
				}
				s.OnEvent(&stream.MessageReceived{StreamID: s.ID, Data: payload})
			}
		}
		if err != nil {
			if err != io.EOF && err != context.Canceled {
				e.logger.Debug("request body read error", zap.Error(err), zap.Uint64("stream_id", s.ID))
			}
			s.OnEvent(&stream.RequestEnded{StreamID: s.ID})
			return
		}
	}
}

func requestHeaderFields(r *http.Request) metadata.FieldList {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	fl := metadata.FieldList{
		{Name: ":method", Value: r.Method},
		{Name: ":scheme", Value: scheme},
		{Name: ":path", Value: r.URL.Path},
	}
	if r.Host != "" {
		fl = append(fl, metadata.Field{Name: ":authority", Value: r.Host})
	}
	for name, values := range r.Header {
		lower := lowerHeader(name)
		for _, v := range values {
			fl = append(fl, metadata.Field{Name: lower, Value: v})
		}
	}
	return fl
}
