// Package compress implements the identity/gzip compressor registry used
// by the message framer. The wire protocol only passes the grpc-encoding
// header through (§1 Non-goals: "compression negotiation beyond
// identity/gzip passthrough").
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"
)

const (
	Identity = ""
	Gzip     = "gzip"
)

// Compressor compresses and decompresses message payloads.
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var registry = struct {
	sync.RWMutex
	byName map[string]Compressor
}{byName: make(map[string]Compressor)}

// Register adds c to the registry, keyed by c.Name().
func Register(c Compressor) {
	registry.Lock()
	defer registry.Unlock()
	registry.byName[c.Name()] = c
}

// Get looks up a registered compressor by name.
func Get(name string) (Compressor, bool) {
	registry.RLock()
	defer registry.RUnlock()
	c, ok := registry.byName[name]
	return c, ok
}

func init() {
	Register(&GzipCompressor{})
}

// GzipCompressor implements gzip compression using a pooled writer and
// pooled buffers to reduce per-message allocations; Decompress builds a
// fresh gzip reader per call.
type GzipCompressor struct{}

func (g *GzipCompressor) Name() string { return Gzip }

var gzipWriterPool = sync.Pool{New: func() any { return gzip.NewWriter(nil) }}
var gzipBufferPool = sync.Pool{New: func() any { return &bytes.Buffer{} }}

func (g *GzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := gzipBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer gzipBufferPool.Put(buf)

	gz := gzipWriterPool.Get().(*gzip.Writer)
	gz.Reset(buf)
	defer gzipWriterPool.Put(gz)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compress: gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress: gzip close: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func (g *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compress: gzip reader: %w", err)
	}
	defer r.Close()

	buf := gzipBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer gzipBufferPool.Put(buf)

	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("compress: gzip read: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
