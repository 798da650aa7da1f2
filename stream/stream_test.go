package stream_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

type fakeTransport struct {
	headersWritten bool
	messages       [][]byte
	trailers       *metadata.Trailers
	closedSend     bool
	canceled       bool
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	f.messages = append(f.messages, data)
	return nil
}
func (f *fakeTransport) WriteResponseHeaders() error { f.headersWritten = true; return nil }
func (f *fakeTransport) WriteTrailers(tr *metadata.Trailers) error {
	f.trailers = tr
	return nil
}
func (f *fakeTransport) CloseSend() error { f.closedSend = true; return nil }
func (f *fakeTransport) Cancel() error    { f.canceled = true; return nil }

func TestServerStreamHappyPath(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "Greeter", Method: "SayHello", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 1, req, ft)

	if got := s.State(); got != stream.Open {
		t.Fatalf("initial server state = %s, want OPEN", got)
	}

	s.OnEvent(&stream.MessageReceived{Data: []byte("hi")})
	s.OnEvent(&stream.RequestEnded{})

	data, err := s.ReceiveMessage()
	if err != nil || string(data) != "hi" {
		t.Fatalf("ReceiveMessage = %q, %v", data, err)
	}
	if _, err := s.ReceiveMessage(); err != io.EOF {
		t.Fatalf("second ReceiveMessage = %v, want io.EOF", err)
	}

	if err := s.SendMessage([]byte("hello reply")); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !ft.headersWritten {
		t.Fatal("expected response headers to be flushed lazily on first send")
	}
	if err := s.Close(status.OK, ""); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if ft.trailers == nil || ft.trailers.Status != 0 {
		t.Fatalf("got trailers %+v", ft.trailers)
	}
	if got := s.State(); got != stream.Closed {
		t.Fatalf("final state = %s, want CLOSED", got)
	}

	if err := s.SendMessage([]byte("too late")); err == nil {
		t.Fatal("expected ErrStreamState sending after close")
	}
	if err := s.Close(status.OK, ""); err == nil {
		t.Fatal("expected ErrStreamState on double close")
	}
}

func TestClientStreamObservesRpcFailed(t *testing.T) {
	ft := &fakeTransport{}
	s := stream.NewClientStream(context.Background(), 3, "Greeter", "SayHello", ft)

	if got := s.State(); got != stream.OpenHeadersSent {
		t.Fatalf("initial client state = %s, want OPEN_HEADERS_SENT", got)
	}

	s.OnEvent(&stream.ResponseReceived{CustomMetadata: metadata.New()})
	if got := s.State(); got != stream.Open {
		t.Fatalf("state after ResponseReceived = %s, want OPEN", got)
	}

	for i := 0; i < 7; i++ {
		s.OnEvent(&stream.MessageReceived{Data: []byte{byte(i)}})
	}
	s.OnEvent(&stream.ResponseEnded{Status: int(status.Unknown), StatusMessage: "Lucky 7"})

	for i := 0; i < 7; i++ {
		if _, err := s.ReceiveMessage(); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	_, err := s.ReceiveMessage()
	se, ok := err.(*status.Error)
	if !ok || se.Code != status.Unknown || se.Message != "Lucky 7" {
		t.Fatalf("got %v, want RpcFailed(Unknown, Lucky 7)", err)
	}
}

func TestClientCancelUnblocksReceiveMessage(t *testing.T) {
	ft := &fakeTransport{}
	s := stream.NewClientStream(context.Background(), 5, "Greeter", "SayHello", ft)
	// Cancel from another goroutine must unblock a ReceiveMessage that is
	// waiting on a client stream with no inbound messages.
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Cancel()
	}()
	_, err := s.ReceiveMessage()
	if err == nil {
		t.Fatal("expected an error once the stream is canceled")
	}
}

func TestCancelUnblocksReceiveMessage(t *testing.T) {
	ft := &fakeTransport{}
	req := &stream.RequestReceived{Service: "g", Method: "m", CustomMetadata: metadata.New()}
	s := stream.NewServerStream(context.Background(), 9, req, ft)

	done := make(chan error, 1)
	go func() {
		_, err := s.ReceiveMessage()
		done <- err
	}()
	time.Sleep(5 * time.Millisecond)
	s.Cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected non-nil error after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("ReceiveMessage did not unblock after Cancel")
	}
	if !ft.canceled {
		t.Fatal("expected transport.Cancel to be invoked")
	}
}
