package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flowrpc/flowrpc/compress"
	"github.com/flowrpc/flowrpc/framing"
	"github.com/flowrpc/flowrpc/metadata"
	"github.com/flowrpc/flowrpc/status"
	"github.com/flowrpc/flowrpc/stream"
)

var nextStreamID atomic.Uint64

func lowerHeader(name string) string { return strings.ToLower(name) }

// NewStream opens a new client-side RPC: it starts streaming request
// headers immediately (§4.3's client streams open "headers-first") and
// launches a background goroutine that performs the RoundTrip and pumps
// the response into Stream events as they arrive (§4.4, client half).
func (d *Dialer) NewStream(ctx context.Context, service, method string, timeout *time.Duration, custom *metadata.MD) (*stream.Stream, error) {
	pr, pw := io.Pipe()

	reqHeaders := &metadata.RequestHeaders{
		Scheme:      "http",
		Service:     service,
		Method:      method,
		Authority:   d.target,
		Timeout:     timeout,
		UserAgent:   "flowrpc/1.0",
		MessageType: "application/grpc+proto",
		Custom:      custom,
	}
	if reqHeaders.Custom == nil {
		reqHeaders.Custom = metadata.New()
	}
	fields := metadata.EmitRequestHeaders(reqHeaders)

	u := &url.URL{Scheme: "http", Host: d.target, Path: "/" + service + "/" + method}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), pr)
	if err != nil {
		return nil, &status.Error{Code: status.Unavailable, Message: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Host = d.target
	httpReq.ContentLength = -1
	for _, f := range fields {
		if len(f.Name) > 0 && f.Name[0] == ':' {
			continue
		}
		httpReq.Header.Add(http.CanonicalHeaderKey(f.Name), f.Value)
	}

	transport := newClientTransport(pw)
	id := nextStreamID.Add(2) - 1
	s := stream.NewClientStream(ctx, id, service, method, transport)

	go d.pumpResponse(s, httpReq.WithContext(s.Context()))
	return s, nil
}

// pumpResponse performs the RoundTrip and, once response headers arrive,
// deframes the body into MessageReceived events, finishing with a
// ResponseEnded carrying the trailers' grpc-status (§4.4).
func (d *Dialer) pumpResponse(s *stream.Stream, req *http.Request) {
	resp, err := d.transport.RoundTrip(req)
	if err != nil {
		s.OnEvent(&stream.ResponseEnded{
			StreamID:      s.ID,
			Status:        int(status.Unavailable),
			StatusMessage: err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	respFields := responseFields(resp)
	respHeaders, err := metadata.ParseResponseHeaders(respFields)
	if err != nil {
		s.OnEvent(&stream.ResponseEnded{
			StreamID:      s.ID,
			Status:        int(status.Internal),
			StatusMessage: err.Error(),
		})
		return
	}
	s.OnEvent(&stream.ResponseReceived{
		StreamID:        s.ID,
		MessageEncoding: respHeaders.Encoding,
		CustomMetadata:  respHeaders.Custom,
	})

	deframer := framing.NewDeframer(framing.DefaultMaxMessageSize)
	if respHeaders.Encoding != "" && respHeaders.Encoding != compress.Identity {
		if c, ok := compress.Get(respHeaders.Encoding); ok {
			deframer.SetDecompressor(c.Decompress)
		}
	}
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			deframer.Write(buf[:n])
			for {
				payload, ok, ferr := deframer.Next()
				if ferr != nil {
					s.OnEvent(&stream.ResponseEnded{StreamID: s.ID, Status: int(status.Internal), StatusMessage: ferr.Error()})
					return
				}
				if !ok {
					break
				}
				s.OnEvent(&stream.MessageReceived{StreamID: s.ID, Data: payload})
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				s.OnEvent(&stream.ResponseEnded{StreamID: s.ID, Status: int(status.Unavailable), StatusMessage: rerr.Error()})
				return
			}
			break
		}
	}

	trailers, err := metadata.ParseTrailers(trailerFields(resp))
	if err != nil {
		s.OnEvent(&stream.ResponseEnded{StreamID: s.ID, Status: int(status.Internal), StatusMessage: err.Error()})
		return
	}
	s.OnEvent(&stream.ResponseEnded{
		StreamID:      s.ID,
		Status:        trailers.Status,
		StatusMessage: trailers.StatusMessage,
		CustomMetadata: trailers.Custom,
	})
}

func responseFields(resp *http.Response) metadata.FieldList {
	fl := metadata.FieldList{{Name: ":status", Value: fmt.Sprintf("%d", resp.StatusCode)}}
	for name, values := range resp.Header {
		lower := lowerHeader(name)
		for _, v := range values {
			fl = append(fl, metadata.Field{Name: lower, Value: v})
		}
	}
	return fl
}

func trailerFields(resp *http.Response) metadata.FieldList {
	var fl metadata.FieldList
	for name, values := range resp.Trailer {
		lower := lowerHeader(name)
		for _, v := range values {
			fl = append(fl, metadata.Field{Name: lower, Value: v})
		}
	}
	return fl
}
