package framing_test

import (
	"bytes"
	"testing"

	"github.com/flowrpc/flowrpc/framing"
)

func TestFrameRoundTripWholeChunks(t *testing.T) {
	msgs := [][]byte{[]byte("hello"), []byte(""), []byte("world, a longer payload here")}

	var wire []byte
	for _, m := range msgs {
		wire = append(wire, framing.Frame(m, false)...)
	}

	d := framing.NewDeframer(0)
	d.Write(wire)

	var got [][]byte
	for {
		payload, ok, err := d.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, payload)
	}

	if len(got) != len(msgs) {
		t.Fatalf("got %d messages, want %d", len(got), len(msgs))
	}
	for i := range msgs {
		if !bytes.Equal(got[i], msgs[i]) {
			t.Fatalf("message %d mismatch: got %q want %q", i, got[i], msgs[i])
		}
	}
}

func TestFrameRoundTripByteAtATime(t *testing.T) {
	msg := []byte("chunked delivery should still reassemble correctly")
	wire := framing.Frame(msg, false)

	d := framing.NewDeframer(0)
	var got []byte
	for _, b := range wire {
		d.Write([]byte{b})
		payload, ok, err := d.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if ok {
			got = payload
		}
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("got %q want %q", got, msg)
	}
}

func TestDeframerMessageTooLarge(t *testing.T) {
	d := framing.NewDeframer(4)
	d.Write(framing.Frame([]byte("12345"), false))
	_, _, err := d.Next()
	if err == nil {
		t.Fatal("expected ErrMessageTooLarge")
	}
	if _, ok := err.(*framing.ErrMessageTooLarge); !ok {
		t.Fatalf("got %T, want *ErrMessageTooLarge", err)
	}
}

func TestDeframerCompressionUnsupported(t *testing.T) {
	d := framing.NewDeframer(0)
	d.Write(framing.Frame([]byte("payload"), true))
	_, _, err := d.Next()
	if _, ok := err.(*framing.ErrCompressionUnsupported); !ok {
		t.Fatalf("got %T, want *ErrCompressionUnsupported", err)
	}
}

func TestDeframerPartialFrameIsNotConsumed(t *testing.T) {
	d := framing.NewDeframer(0)
	wire := framing.Frame([]byte("abc"), false)
	d.Write(wire[:len(wire)-1])
	_, ok, err := d.Next()
	if err != nil || ok {
		t.Fatalf("expected no complete frame yet, got ok=%v err=%v", ok, err)
	}
	if !d.Pending() {
		t.Fatal("expected partial frame to remain buffered")
	}
}
