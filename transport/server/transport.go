package server

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/flowrpc/flowrpc/framing"
	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/status"
)

func lowerHeader(name string) string {
	return strings.ToLower(name)
}

// httpServerTransport implements stream.Transport over a net/http
// ResponseWriter, the server half of the Connection Engine's per-stream
// write path (§4.4).
type httpServerTransport struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu             sync.Mutex
	headersWritten bool
}

func newServerTransport(w http.ResponseWriter) *httpServerTransport {
	flusher, _ := w.(http.Flusher)
	return &httpServerTransport{w: w, flusher: flusher}
}

func (t *httpServerTransport) WriteResponseHeaders() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeResponseHeadersLocked()
}

func (t *httpServerTransport) writeResponseHeadersLocked() error {
	if t.headersWritten {
		return nil
	}
	fl := metadata.EmitResponseHeaders(&metadata.ResponseHeaders{
		ContentType: "application/grpc+proto",
		Custom:      metadata.New(),
	})
	h := t.w.Header()
	for _, f := range fl {
		if f.Name == ":status" {
			continue
		}
		h.Add(http.CanonicalHeaderKey(f.Name), f.Value)
	}
	t.w.WriteHeader(http.StatusOK)
	t.headersWritten = true
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

func (t *httpServerTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.headersWritten {
		if err := t.writeResponseHeadersLocked(); err != nil {
			return err
		}
	}
	frame := framing.Frame(data, false)
	if _, err := t.w.Write(frame); err != nil {
		return err
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

func (t *httpServerTransport) WriteTrailers(tr *metadata.Trailers) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.headersWritten {
		if err := t.writeResponseHeadersLocked(); err != nil {
			return err
		}
	}
	h := t.w.Header()
	for _, f := range metadata.EmitTrailers(tr) {
		h.Set(http.TrailerPrefix+http.CanonicalHeaderKey(f.Name), f.Value)
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
	return nil
}

func (t *httpServerTransport) CloseSend() error {
	return &status.Error{Code: status.Internal, Message: "CloseSend is a client-only operation"}
}

// Cancel is best-effort: net/http gives a handler no direct RST_STREAM
// primitive, so Cancel always panics with http.ErrAbortHandler, which the
// HTTP/2 server recovers on the handler goroutine and maps to a stream
// reset. Its one caller, Engine.pumpInbound, runs on that goroutine; on any
// other goroutine the panic is not recovered.
func (t *httpServerTransport) Cancel() error {
	panic(http.ErrAbortHandler)
}

// writeTrailersOnlyError writes a trailers-only gRPC error response for
// failures observed before a stream.Stream could be constructed (bad
// request headers, unknown method).
func writeTrailersOnlyError(w http.ResponseWriter, code status.Code, msg string) {
	h := w.Header()
	h.Set("Content-Type", "application/grpc+proto")
	h.Set(http.TrailerPrefix+"Grpc-Status", strconv.Itoa(int(code)))
	if msg != "" {
		h.Set(http.TrailerPrefix+"Grpc-Message", msg)
	}
	w.WriteHeader(http.StatusOK)
}
