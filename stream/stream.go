package stream

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/status"
)

// Role distinguishes which half of an RPC a Stream models.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Transport is the write-side collaborator a Connection Engine supplies to
// a Stream: the handful of wire operations the state machine needs to
// perform but does not implement itself (§1 out-of-scope boundary — the
// engine owns the actual HTTP/2 connection object).
type Transport interface {
	// WriteMessage writes one framed gRPC message for this stream.
	WriteMessage(data []byte) error
	// WriteResponseHeaders flushes this stream's local (response) headers.
	// Server-only; called at most once, lazily, on first use.
	WriteResponseHeaders() error
	// WriteTrailers closes the local (server) side with status trailers.
	WriteTrailers(tr *metadata.Trailers) error
	// CloseSend closes the local (client) side with no payload.
	CloseSend() error
	// Cancel sends RST_STREAM(CANCEL) and tears down local resources.
	Cancel() error
}

// Stream is the RpcStream described in §3: one instance per in-flight RPC
// on either peer.
type Stream struct {
	ID        uint64
	Role      Role
	Service   string
	Method    string
	Scheme    string
	Authority string
	Timeout   *time.Duration

	InitialMetadata *metadata.MD
	TrailingMeta    *metadata.MD

	transport Transport

	mu               sync.Mutex
	localHeadersSent bool
	peerHeadersSeen  bool
	localClosed      bool
	remoteClosed     bool
	terminal         Event

	recvCh    chan []byte
	recvDone  chan struct{}
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// recvQueueSize bounds the inbound message queue (§5 backpressure: a full
// queue stalls the engine's flow-control advance for this stream).
const recvQueueSize = 16

// NewServerStream constructs the server half of an RPC immediately after
// RequestReceived, per §3's lifecycle rule.
func NewServerStream(ctx context.Context, id uint64, req *RequestReceived, t Transport) *Stream {
	var cancel context.CancelFunc
	if req.Timeout != nil {
		ctx, cancel = context.WithTimeout(ctx, *req.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	s := &Stream{
		ID:              id,
		Role:            RoleServer,
		Service:         req.Service,
		Method:          req.Method,
		Scheme:          req.Scheme,
		Authority:       req.Authority,
		Timeout:         req.Timeout,
		InitialMetadata: req.CustomMetadata,
		TrailingMeta:    metadata.New(),
		transport:       t,
		peerHeadersSeen: true,
		recvCh:          make(chan []byte, recvQueueSize),
		recvDone:        make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}
	go s.watchDeadline()
	return s
}

// NewClientStream constructs the client half of an RPC. Request headers
// are assumed already flushed by the Connection Engine by the time this
// returns (client streams open headers-first, per §4.3).
func NewClientStream(ctx context.Context, id uint64, service, method string, t Transport) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ID:               id,
		Role:             RoleClient,
		Service:          service,
		Method:           method,
		transport:        t,
		localHeadersSent: true,
		recvCh:           make(chan []byte, recvQueueSize),
		recvDone:         make(chan struct{}),
		ctx:              ctx,
		cancel:           cancel,
	}
	return s
}

// Context returns the stream's context, canceled on Cancel or deadline.
func (s *Stream) Context() context.Context { return s.ctx }

// watchDeadline actively closes a server stream with DEADLINE_EXCEEDED
// the moment its context expires, rather than waiting for the handler to
// next touch the stream (§4.3 "Timeout"; mirrors the teacher's
// TimeoutInterceptor watch-and-cancel shape in rpc/interceptors.go,
// generalized from a handler-call timeout to a stream-scoped one since a
// handler that never calls Recv/Send would otherwise never observe it).
func (s *Stream) watchDeadline() {
	<-s.ctx.Done()
	if s.ctx.Err() != context.DeadlineExceeded {
		return
	}
	_ = s.Close(status.DeadlineExceeded, "deadline exceeded")
}

// State returns the stream's current externally-visible state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Stream) stateLocked() State {
	return deriveState(s.localHeadersSent, s.peerHeadersSeen, s.localClosed, s.remoteClosed)
}

// SendMessage sends one outbound message; legal only while the local side
// is open (§4.3's "send_message is legal only while the local side is
// open"). Server streams lazily flush response headers on first send.
func (s *Stream) SendMessage(data []byte) error {
	s.mu.Lock()
	if s.localClosed {
		st := s.stateLocked()
		s.mu.Unlock()
		return &ErrStreamState{Op: "send_message", State: st}
	}
	needsHeaders := s.Role == RoleServer && !s.localHeadersSent
	if needsHeaders {
		s.localHeadersSent = true
	}
	s.mu.Unlock()

	if needsHeaders {
		if err := s.transport.WriteResponseHeaders(); err != nil {
			return err
		}
	}
	return s.transport.WriteMessage(data)
}

// CloseSend is the client-side close: END_STREAM with no payload.
func (s *Stream) CloseSend() error {
	if s.Role != RoleClient {
		return &ErrStreamState{Op: "close_send", State: s.State()}
	}
	s.mu.Lock()
	if s.localClosed {
		st := s.stateLocked()
		s.mu.Unlock()
		return &ErrStreamState{Op: "close_send", State: st}
	}
	s.localClosed = true
	becameClosed := s.remoteClosed
	s.mu.Unlock()

	err := s.transport.CloseSend()
	if becameClosed {
		s.closeOnce.Do(func() { close(s.recvDone) })
	}
	return err
}

// Close is the server-side close: emits trailers with grpc-status and,
// if non-empty, grpc-message, then closes the local side.
func (s *Stream) Close(code status.Code, msg string) error {
	if s.Role != RoleServer {
		return &ErrStreamState{Op: "close", State: s.State()}
	}
	s.mu.Lock()
	if s.localClosed {
		st := s.stateLocked()
		s.mu.Unlock()
		return &ErrStreamState{Op: "close", State: st}
	}
	s.localClosed = true
	s.localHeadersSent = true
	becameClosed := s.remoteClosed
	s.mu.Unlock()

	err := s.transport.WriteTrailers(&metadata.Trailers{
		Status:        int(code),
		StatusMessage: msg,
		Custom:        s.TrailingMeta,
	})
	if becameClosed {
		s.closeOnce.Do(func() { close(s.recvDone) })
	}
	return err
}

// Cancel sends RST_STREAM(CANCEL), closes the local stream object, and
// unblocks any pending ReceiveMessage with a cancelled result (§5).
func (s *Stream) Cancel() {
	s.mu.Lock()
	if s.localClosed && s.remoteClosed {
		s.mu.Unlock()
		return
	}
	s.localClosed = true
	s.remoteClosed = true
	s.mu.Unlock()

	s.cancel()
	_ = s.transport.Cancel()
	s.closeOnce.Do(func() { close(s.recvDone) })
}

// OnEvent feeds an inbound Event from the Connection Engine into this
// Stream, per §4.4 ("On inbound DATA it feeds the stream's deframer,
// queueing each complete payload").
func (s *Stream) OnEvent(ev Event) {
	switch e := ev.(type) {
	case *ResponseReceived:
		s.mu.Lock()
		s.peerHeadersSeen = true
		if s.InitialMetadata == nil {
			s.InitialMetadata = e.CustomMetadata
		}
		s.mu.Unlock()
	case *MessageReceived:
		select {
		case s.recvCh <- e.Data:
		case <-s.recvDone:
		}
	case *RequestEnded:
		s.markRemoteClosed(e)
	case *ResponseEnded:
		s.markRemoteClosed(e)
	}
}

func (s *Stream) markRemoteClosed(terminal Event) {
	s.mu.Lock()
	s.remoteClosed = true
	s.terminal = terminal
	becameClosed := s.localClosed
	s.mu.Unlock()

	close(s.recvCh)
	if becameClosed {
		s.closeOnce.Do(func() { close(s.recvDone) })
	}
}

// ReceiveMessage returns the next inbound message, or io.EOF once the
// remote side has closed and every queued message has been drained — the
// "null" result in §4.3. If the terminal event is a ResponseEnded with a
// non-zero status, that status is returned instead of io.EOF, per §4.3's
// "caller must then inspect end_stream_event" rule collapsed into one
// idiomatic Go error return.
func (s *Stream) ReceiveMessage() ([]byte, error) {
	select {
	case data, ok := <-s.recvCh:
		if ok {
			return data, nil
		}
	case <-s.ctx.Done():
		if s.ctx.Err() == context.DeadlineExceeded {
			return nil, status.New(status.DeadlineExceeded, "deadline exceeded")
		}
		return nil, status.New(status.Canceled, "stream canceled")
	}

	s.mu.Lock()
	terminal := s.terminal
	s.mu.Unlock()

	if re, ok := terminal.(*ResponseEnded); ok && re.Status != int(status.OK) {
		return nil, status.New(status.Code(re.Status), re.StatusMessage)
	}
	return nil, io.EOF
}

// EndStreamEvent returns the terminal event observed so far, or nil.
func (s *Stream) EndStreamEvent() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Recv is a convenience alias used by cardinality adapters that iterate a
// stream as a lazy sequence: it returns (data, false, nil) once exhausted
// rather than an io.EOF error, matching §9's "pull on an exhausted
// sequence returns null, not an error" generator model.
func (s *Stream) Recv() (data []byte, ok bool, err error) {
	data, err = s.ReceiveMessage()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *Stream) String() string {
	return fmt.Sprintf("stream[%d %s/%s %s]", s.ID, s.Service, s.Method, s.State())
}
