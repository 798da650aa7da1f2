package codec_test

import (
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/flowrpc/flowrpc/codec"
)

func TestProtoCodecRoundTrip(t *testing.T) {
	c := codec.ProtoCodec{}

	in := wrapperspb.String("hello")
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out := &wrapperspb.StringValue{}
	if err := c.Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.GetValue() != "hello" {
		t.Fatalf("got %q, want %q", out.GetValue(), "hello")
	}
}

func TestProtoCodecRejectsNonProtoMessage(t *testing.T) {
	c := codec.ProtoCodec{}
	if _, err := c.Marshal("not a proto message"); err == nil {
		t.Fatal("expected an error marshaling a non-proto.Message value")
	}
}
