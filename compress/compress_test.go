package compress_test

import (
	"bytes"
	"testing"

	"github.com/flowrpc/flowrpc/compress"
)

func TestGzipRoundTrip(t *testing.T) {
	c, ok := compress.Get(compress.Gzip)
	if !ok {
		t.Fatal("expected gzip compressor to be registered")
	}

	original := []byte("the quick brown fox jumps over the lazy dog, repeated for good measure")
	compressed, err := c.Compress(original)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if bytes.Equal(compressed, original) {
		t.Fatal("expected compressed output to differ from input")
	}

	decompressed, err := c.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, original) {
		t.Fatalf("got %q, want %q", decompressed, original)
	}
}

func TestGetUnknownNameMisses(t *testing.T) {
	if _, ok := compress.Get("snappy"); ok {
		t.Fatal("expected snappy to be unregistered")
	}
}
