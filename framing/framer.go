// Package framing implements the gRPC length-prefixed message framer and
// deframer that sit above HTTP/2 DATA frame bytes (§4.2).
package framing

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the 5-byte frame header: 1 flags byte + 4-byte
	// big-endian length.
	HeaderSize = 5

	// FlagCompressed is bit 0 of the flags byte.
	FlagCompressed byte = 1

	// DefaultMaxMessageSize is the default maximum payload length a frame
	// header may declare.
	DefaultMaxMessageSize = 4 * 1024 * 1024
)

// ErrMessageTooLarge is returned when the length declared in a frame's
// header exceeds the configured maximum. The size of a payload after
// decompression is not checked.
type ErrMessageTooLarge struct {
	Size, Max uint32
}

func (e *ErrMessageTooLarge) Error() string {
	return fmt.Sprintf("framing: message of %d bytes exceeds max %d bytes", e.Size, e.Max)
}

// ErrCompressionUnsupported is returned when a frame's compressed flag is
// set but no decompressor has been configured for the deframer.
type ErrCompressionUnsupported struct{}

func (e *ErrCompressionUnsupported) Error() string {
	return "framing: compressed flag set but no decompressor configured"
}

// Frame renders one gRPC message frame: flags ∥ big-endian length ∥ payload.
func Frame(payload []byte, compressed bool) []byte {
	out := make([]byte, HeaderSize+len(payload))
	if compressed {
		out[0] = FlagCompressed
	}
	binary.BigEndian.PutUint32(out[1:5], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}
