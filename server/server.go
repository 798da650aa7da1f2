// Package server wires the Registry and the Connection Engine into a
// runnable gRPC-over-HTTP/2 server, grounded on the teacher's
// gateway.NewHTTP2Server/ListenAndServeHTTP2 pattern but serving h2c
// (cleartext HTTP/2) since the runtime spec treats TLS as out of scope.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"go.uber.org/zap"

	"github.com/flowrpc/flowrpc/registry"
	transportserver "github.com/flowrpc/flowrpc/transport/server"
)

// Server is the top-level, user-facing gRPC server.
type Server struct {
	cfg    *config
	reg    *registry.Registry
	engine *transportserver.Engine
	http   *http.Server
}

// New builds a Server. Services must be registered via RegisterService
// before Serve is called.
func New(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	reg := registry.New()
	engineOpts := transportserver.Options{
		MaxMessageSize:       cfg.maxMessageSize,
		MaxConcurrentStreams: cfg.maxConcurrentStreams,
		DefaultTimeout:       cfg.defaultTimeout,
	}
	engine := transportserver.NewEngine(reg, engineOpts, cfg.logger, cfg.unaryInterceptors...)
	return &Server{cfg: cfg, reg: reg, engine: engine}
}

// RegisterService adds desc's methods to the dispatch table. It must be
// called before Serve.
func (s *Server) RegisterService(desc *registry.ServiceDesc) error {
	return s.reg.Register(desc)
}

// Serve accepts connections on lis, speaking cleartext HTTP/2 (h2c) so
// plain net.Listeners work without a TLS handshake (§1 scope: transport
// security is out of scope).
func (s *Server) Serve(lis net.Listener) error {
	h2s := &http2.Server{
		MaxConcurrentStreams: s.cfg.maxConcurrentStreams,
	}
	handler := h2c.NewHandler(s.engine, h2s)

	s.http = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureServer(s.http, h2s); err != nil {
		return fmt.Errorf("server: configure http2: %w", err)
	}

	s.cfg.logger.Info("server listening", zap.Stringer("addr", lis.Addr()))
	return s.http.Serve(lis)
}

// ListenAndServe is a convenience wrapper that binds addr and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Shutdown drains the engine (new streams are rejected with UNAVAILABLE),
// closes the listener, and waits up to the configured graceful timeout (or
// until ctx ends) for in-flight streams to finish. Streams still open when
// the wait ends are left running, and Shutdown returns the context error.
func (s *Server) Shutdown(ctx context.Context) error {
	s.engine.Drain()
	if s.http == nil {
		return nil
	}

	shutdownCtx := ctx
	if s.cfg.gracefulTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.cfg.gracefulTimeout)
		defer cancel()
	}
	return s.http.Shutdown(shutdownCtx)
}
