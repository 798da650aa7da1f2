// Package client implements the client-side Connection Engine: it owns an
// h2c (cleartext HTTP/2) connection via golang.org/x/net/http2.Transport
// and translates Stream operations into an outbound *http.Request/
// *http.Response pair, grounded on the teacher's gateway.NewHTTP2Server
// dialing conventions and examples/http-client-example/client's plain
// net/http client shape.
package client

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"golang.org/x/net/http2"
)

// Dialer owns one h2c connection pool to a single target and constructs
// outbound request transports for it.
type Dialer struct {
	target    string
	transport *http2.Transport
}

// DialerOption configures a Dialer.
type DialerOption func(*http2.Transport)

// WithDialTimeout bounds the time the underlying TCP dial may take.
func WithDialTimeout(d time.Duration) DialerOption {
	return func(t *http2.Transport) {
		dialer := &net.Dialer{Timeout: d}
		t.DialTLSContext = plainDialer(dialer)
	}
}

func plainDialer(dialer *net.Dialer) func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
	return func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
		return dialer.DialContext(ctx, network, addr)
	}
}

// NewDialer builds a Dialer targeting addr (host:port), speaking h2c:
// http2.Transport is told to dial a plain TCP connection in place of TLS
// (AllowHTTP plus a DialTLSContext override), the standard trick for
// cleartext HTTP/2 clients (§1: transport security is out of scope).
func NewDialer(addr string, opts ...DialerOption) *Dialer {
	t := &http2.Transport{
		AllowHTTP:          true,
		DialTLSContext:     plainDialer(&net.Dialer{Timeout: 10 * time.Second}),
		DisableCompression: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return &Dialer{target: addr, transport: t}
}

// Target returns the dial target this Dialer connects to.
func (d *Dialer) Target() string { return d.target }
