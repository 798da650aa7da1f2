package client_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/flowrpc/flowrpc/cardinality"
	"github.com/flowrpc/flowrpc/client"
	"github.com/flowrpc/flowrpc/codec"
	"github.com/flowrpc/flowrpc/registry"
	flowserver "github.com/flowrpc/flowrpc/server"
	"github.com/flowrpc/flowrpc/status"
)

type echoRequest struct{ Text string }
type echoReply struct{ Text string }

func echoService() *registry.ServiceDesc {
	unary := func(_ context.Context, req any) (any, error) {
		r := req.(*echoRequest)
		if r.Text == "explode" {
			return nil, errors.New("kaboom")
		}
		return &echoReply{Text: r.Text}, nil
	}
	serverStream := func(_ context.Context, req any, send func(any) error) error {
		r := req.(*echoRequest)
		for i := 0; i < 3; i++ {
			if err := send(&echoReply{Text: r.Text}); err != nil {
				return err
			}
		}
		return nil
	}
	return &registry.ServiceDesc{
		ServiceName: "echo.Echo",
		Methods: []registry.MethodDescriptor{
			{
				Name:          "Say",
				Kind:          cardinality.UnaryUnary,
				RequestCodec:  codec.JSONCodec{},
				ResponseCodec: codec.JSONCodec{},
				NewRequest:    func() any { return &echoRequest{} },
				UnaryHandler:  unary,
			},
			{
				Name:                "SayStream",
				Kind:                cardinality.UnaryStream,
				RequestCodec:        codec.JSONCodec{},
				ResponseCodec:       codec.JSONCodec{},
				NewRequest:          func() any { return &echoRequest{} },
				ServerStreamHandler: serverStream,
			},
		},
	}
}

func startEchoServer(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := flowserver.New()
	if err := srv.RegisterService(echoService()); err != nil {
		t.Fatalf("register: %v", err)
	}
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return lis.Addr().String()
}

func TestChannelCallUnaryHappyPath(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	resp, err := ch.CallUnary(context.Background(), "echo.Echo", "Say", nil,
		codec.JSONCodec{}, codec.JSONCodec{}, &echoRequest{Text: "hi"},
		func() any { return &echoReply{} })
	if err != nil {
		t.Fatalf("CallUnary: %v", err)
	}
	reply := resp.(*echoReply)
	if reply.Text != "hi" {
		t.Fatalf("got %q, want %q", reply.Text, "hi")
	}
}

func TestChannelCallUnaryPropagatesUnknownStatus(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	_, err = ch.CallUnary(context.Background(), "echo.Echo", "Say", nil,
		codec.JSONCodec{}, codec.JSONCodec{}, &echoRequest{Text: "explode"},
		func() any { return &echoReply{} })
	if err == nil {
		t.Fatal("expected an error")
	}
	se, ok := err.(*status.Error)
	if !ok {
		t.Fatalf("got %T, want *status.Error", err)
	}
	if se.Code != status.Unknown {
		t.Fatalf("got code %v, want Unknown", se.Code)
	}
}

func TestChannelCallServerStreamReceivesAllMessages(t *testing.T) {
	addr := startEchoServer(t)
	ch, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	recv, err := ch.CallServerStream(context.Background(), "echo.Echo", "SayStream", nil,
		codec.JSONCodec{}, codec.JSONCodec{}, &echoRequest{Text: "hi"},
		func() any { return &echoReply{} })
	if err != nil {
		t.Fatalf("CallServerStream: %v", err)
	}

	count := 0
	for {
		msg, ok, err := recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if !ok {
			break
		}
		if msg.(*echoReply).Text != "hi" {
			t.Fatalf("got %q, want %q", msg.(*echoReply).Text, "hi")
		}
		count++
	}
	if count != 3 {
		t.Fatalf("got %d messages, want 3", count)
	}
}
