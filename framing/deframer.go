package framing

import "encoding/binary"

// Deframer accepts an arbitrary byte stream via Write and yields whole
// message payloads in order via Next, retaining any partial frame suffix
// for the next call. Its buffer is always a strict prefix of the next
// complete frame (the FramerState invariant in §3).
type Deframer struct {
	buf        []byte
	maxSize    uint32
	decompress func([]byte) ([]byte, error)
}

// NewDeframer builds a Deframer with the given maximum payload size. A
// maxSize of 0 uses DefaultMaxMessageSize.
func NewDeframer(maxSize uint32) *Deframer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Deframer{maxSize: maxSize}
}

// SetDecompressor installs a decompressor invoked for frames whose
// compressed flag is set. Without one, such frames fail with
// ErrCompressionUnsupported.
func (d *Deframer) SetDecompressor(fn func([]byte) ([]byte, error)) {
	d.decompress = fn
}

// Write appends bytes to the internal buffer.
func (d *Deframer) Write(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next pulls the next complete message payload out of the buffer, if one
// is available. ok is false when only a partial frame (or nothing) is
// buffered — not an error condition.
func (d *Deframer) Next() (payload []byte, ok bool, err error) {
	if len(d.buf) < HeaderSize {
		return nil, false, nil
	}
	flags := d.buf[0]
	length := binary.BigEndian.Uint32(d.buf[1:HeaderSize])
	if length > d.maxSize {
		return nil, false, &ErrMessageTooLarge{Size: length, Max: d.maxSize}
	}
	total := HeaderSize + int(length)
	if len(d.buf) < total {
		return nil, false, nil
	}

	raw := make([]byte, length)
	copy(raw, d.buf[HeaderSize:total])
	d.buf = d.buf[total:]

	if flags&FlagCompressed != 0 {
		if d.decompress == nil {
			return nil, false, &ErrCompressionUnsupported{}
		}
		raw, err = d.decompress(raw)
		if err != nil {
			return nil, false, err
		}
	}
	return raw, true, nil
}

// Pending reports whether a partial frame remains buffered.
func (d *Deframer) Pending() bool {
	return len(d.buf) > 0
}
