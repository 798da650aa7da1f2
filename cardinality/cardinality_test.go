package cardinality_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/flowrpc/flowrpc/cardinality"
	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

type fakeTransport struct {
	messages [][]byte
	trailers *metadata.Trailers
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	f.messages = append(f.messages, data)
	return nil
}
func (f *fakeTransport) WriteResponseHeaders() error { return nil }
func (f *fakeTransport) WriteTrailers(tr *metadata.Trailers) error {
	f.trailers = tr
	return nil
}
func (f *fakeTransport) CloseSend() error { return nil }
func (f *fakeTransport) Cancel() error    { return nil }

type echoMsg struct{ V string }

func (echoMsg) Name() string                        { return "echo" }
func (echoMsg) Marshal(v any) ([]byte, error)        { return []byte(v.(*echoMsg).V), nil }
func (echoMsg) Unmarshal(data []byte, v any) error   { v.(*echoMsg).V = string(data); return nil }

func TestServeUnaryUnaryHappyPath(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "g", Method: "m", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 1, req, ft)

	c := echoMsg{}
	go cardinality.ServeUnaryUnary(s, c, c, func() any { return &echoMsg{} },
		func(ctx context.Context, req any) (any, error) {
			return &echoMsg{V: req.(*echoMsg).V + "!"}, nil
		})

	s.OnEvent(&stream.MessageReceived{Data: []byte("hi")})
	s.OnEvent(&stream.RequestEnded{})

	waitClosed(t, s)
	if len(ft.messages) != 1 || string(ft.messages[0]) != "hi!" {
		t.Fatalf("got messages %v", ft.messages)
	}
	if ft.trailers == nil || ft.trailers.Status != int(status.OK) {
		t.Fatalf("got trailers %+v, want OK", ft.trailers)
	}
}

func TestServeUnaryUnaryHandlerPanicMapsToUnknown(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "g", Method: "m", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 2, req, ft)

	c := echoMsg{}
	go cardinality.ServeUnaryUnary(s, c, c, func() any { return &echoMsg{} },
		func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})

	s.OnEvent(&stream.MessageReceived{Data: []byte("hi")})
	s.OnEvent(&stream.RequestEnded{})

	waitClosed(t, s)
	if ft.trailers == nil || ft.trailers.Status != int(status.Unknown) {
		t.Fatalf("got trailers %+v, want Unknown", ft.trailers)
	}
	if !strings.Contains(ft.trailers.StatusMessage, "boom") {
		t.Fatalf("got message %q, want it to mention the panic", ft.trailers.StatusMessage)
	}
}

func TestServeUnaryUnaryRejectsMultipleRequests(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "g", Method: "m", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 3, req, ft)

	c := echoMsg{}
	go cardinality.ServeUnaryUnary(s, c, c, func() any { return &echoMsg{} },
		func(ctx context.Context, req any) (any, error) {
			return &echoMsg{V: "unreachable"}, nil
		})

	s.OnEvent(&stream.MessageReceived{Data: []byte("one")})
	s.OnEvent(&stream.MessageReceived{Data: []byte("two")})
	s.OnEvent(&stream.RequestEnded{})

	waitClosed(t, s)
	if ft.trailers == nil || ft.trailers.Status != int(status.Internal) {
		t.Fatalf("got trailers %+v, want Internal for more-than-one request", ft.trailers)
	}
}

func TestServeUnaryStreamSendsEachMessage(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "g", Method: "m", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 4, req, ft)

	c := echoMsg{}
	go cardinality.ServeUnaryStream(s, c, c, func() any { return &echoMsg{} },
		func(ctx context.Context, req any, send func(any) error) error {
			for i := 0; i < 3; i++ {
				if err := send(&echoMsg{V: req.(*echoMsg).V}); err != nil {
					return err
				}
			}
			return nil
		})

	s.OnEvent(&stream.MessageReceived{Data: []byte("x")})
	s.OnEvent(&stream.RequestEnded{})

	waitClosed(t, s)
	if len(ft.messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(ft.messages))
	}
}

func TestServeStreamUnaryErrorClosesWithStatus(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "g", Method: "m", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 5, req, ft)

	c := echoMsg{}
	go cardinality.ServeStreamUnary(s, c, c, func() any { return &echoMsg{} },
		func(ctx context.Context, recv func() (any, bool, error)) (any, error) {
			return nil, errors.New("no good")
		})

	s.OnEvent(&stream.MessageReceived{Data: []byte("x")})
	s.OnEvent(&stream.RequestEnded{})

	waitClosed(t, s)
	if ft.trailers == nil || ft.trailers.Status != int(status.Unknown) || ft.trailers.StatusMessage != "no good" {
		t.Fatalf("got trailers %+v", ft.trailers)
	}
}

func waitClosed(t *testing.T, s *stream.Stream) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.State() == stream.Closed {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("stream did not reach CLOSED, got %s", s.State())
}
