package client

import (
	"errors"
	"io"
	"sync"

	"github.com/flowrpc/flowrpc/framing"
	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/status"
)

// errCanceled marks a client stream's request body as aborted by Cancel.
var errCanceled = errors.New("client stream canceled")

// httpClientTransport implements stream.Transport over an outbound
// *http.Request whose body is an io.Pipe: writes go straight onto the
// pipe, which the in-flight RoundTrip streams to the server as DATA
// frames (§4.4, client half).
type httpClientTransport struct {
	pw *io.PipeWriter

	mu     sync.Mutex
	closed bool
}

func newClientTransport(pw *io.PipeWriter) *httpClientTransport {
	return &httpClientTransport{pw: pw}
}

func (t *httpClientTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return &status.Error{Code: status.Internal, Message: "write on closed client stream"}
	}
	_, err := t.pw.Write(framing.Frame(data, false))
	return err
}

// WriteResponseHeaders is server-only; a client stream never flushes
// response headers of its own.
func (t *httpClientTransport) WriteResponseHeaders() error {
	return &status.Error{Code: status.Internal, Message: "WriteResponseHeaders is a server-only operation"}
}

// WriteTrailers is server-only.
func (t *httpClientTransport) WriteTrailers(*metadata.Trailers) error {
	return &status.Error{Code: status.Internal, Message: "WriteTrailers is a server-only operation"}
}

// CloseSend closes the write half of the request body, which the HTTP/2
// transport turns into END_STREAM on the request stream.
func (t *httpClientTransport) CloseSend() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.pw.Close()
}

// Cancel aborts the request body pipe if it is still open; after CloseSend
// it does nothing. The RST_STREAM itself comes from Stream.Cancel
// cancelling the stream's context, which Dialer.NewStream installs as the
// request's context, so the HTTP/2 transport resets the stream.
func (t *httpClientTransport) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.pw.CloseWithError(errCanceled)
}
