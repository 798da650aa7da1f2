package metadata_test

import (
	"testing"
	"time"

	"github.com/flowrpc/flowrpc/metadata"
)

func TestParseRequestHeadersHappyPath(t *testing.T) {
	fl := metadata.FieldList{
		{Name: ":method", Value: "POST"},
		{Name: ":scheme", Value: "http"},
		{Name: ":path", Value: "/greet.Greeter/SayHello"},
		{Name: ":authority", Value: "localhost:50051"},
		{Name: "te", Value: "trailers"},
		{Name: "content-type", Value: "application/grpc+proto"},
		{Name: "grpc-timeout", Value: "500m"},
		{Name: "grpc-encoding", Value: "identity"},
		{Name: "x-request-id", Value: "abc-123"},
	}

	rh, err := metadata.ParseRequestHeaders(fl)
	if err != nil {
		t.Fatalf("ParseRequestHeaders: %v", err)
	}
	if rh.Service != "greet.Greeter" || rh.Method != "SayHello" {
		t.Fatalf("got service=%q method=%q", rh.Service, rh.Method)
	}
	if rh.Timeout == nil || *rh.Timeout != 500*time.Millisecond {
		t.Fatalf("got timeout=%v", rh.Timeout)
	}
	if v, ok := rh.Custom.Get("x-request-id"); !ok || v != "abc-123" {
		t.Fatalf("custom metadata not preserved: %v %v", v, ok)
	}
	if _, ok := rh.Custom.Get("content-type"); ok {
		t.Fatalf("content-type leaked into custom metadata")
	}
}

func TestParseRequestHeadersBadPath(t *testing.T) {
	fl := metadata.FieldList{
		{Name: ":method", Value: "POST"},
		{Name: ":scheme", Value: "http"},
		{Name: ":path", Value: "/Greeter"},
		{Name: "te", Value: "trailers"},
		{Name: "content-type", Value: "application/grpc"},
	}
	if _, err := metadata.ParseRequestHeaders(fl); err == nil {
		t.Fatal("expected ProtocolError for missing method segment")
	}
}

func TestParseRequestHeadersRejectsMissingTrailers(t *testing.T) {
	fl := metadata.FieldList{
		{Name: ":method", Value: "POST"},
		{Name: ":scheme", Value: "http"},
		{Name: ":path", Value: "/a/b"},
		{Name: "te", Value: "gzip"},
		{Name: "content-type", Value: "application/grpc"},
	}
	if _, err := metadata.ParseRequestHeaders(fl); err == nil {
		t.Fatal("expected ProtocolError for incompatible proxy (te != trailers)")
	}
}

func TestMetadataRoundTripBin(t *testing.T) {
	md := metadata.New()
	md.Add("trace-bin", string([]byte{0, 1, 2, 255}))

	var wire metadata.FieldList
	md.EachWire(func(k, v string) { wire = append(wire, metadata.Field{Name: k, Value: v}) })

	decoded := metadata.New()
	for _, f := range wire {
		if err := decoded.AddWire(f.Name, f.Value); err != nil {
			t.Fatalf("AddWire: %v", err)
		}
	}
	got, ok := decoded.Get("trace-bin")
	if !ok || got != string([]byte{0, 1, 2, 255}) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestTrailersRoundTripStatusMessage(t *testing.T) {
	tr := &metadata.Trailers{Status: 2, StatusMessage: "oops my bad \x00\xff"}
	fl := metadata.EmitTrailers(tr)
	got, err := metadata.ParseTrailers(fl)
	if err != nil {
		t.Fatalf("ParseTrailers: %v", err)
	}
	if got.Status != 2 || got.StatusMessage != tr.StatusMessage {
		t.Fatalf("got %+v", got)
	}
}

func TestParseTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"2H":   2 * time.Hour,
		"500m": 500 * time.Millisecond,
		"7n":   7 * time.Nanosecond,
	}
	for in, want := range cases {
		got, err := metadata.ParseTimeout(in)
		if err != nil {
			t.Fatalf("ParseTimeout(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimeout(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := metadata.ParseTimeout("10Q"); err == nil {
		t.Fatal("expected error for unknown suffix")
	}
}
