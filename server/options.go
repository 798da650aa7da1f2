package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/flowrpc/flowrpc/framing"
	"github.com/flowrpc/flowrpc/internal/interceptor"
)

// config collects the options enumerated in §6.
type config struct {
	maxMessageSize       uint32
	maxConcurrentStreams uint32
	defaultTimeout       time.Duration
	userAgent            string
	gracefulTimeout      time.Duration
	logger               *zap.Logger
	unaryInterceptors    []interceptor.UnaryInterceptor
}

func defaultConfig() *config {
	return &config{
		maxMessageSize:       framing.DefaultMaxMessageSize,
		maxConcurrentStreams: 100,
		gracefulTimeout:      30 * time.Second,
		userAgent:            "flowrpc/1.0",
		logger:               zap.NewNop(),
	}
}

// Option configures a Server at construction time.
type Option func(*config)

// WithMaxMessageSize overrides the default 4 MiB maximum message size.
func WithMaxMessageSize(n uint32) Option {
	return func(c *config) { c.maxMessageSize = n }
}

// WithMaxConcurrentStreams overrides the default of 100.
func WithMaxConcurrentStreams(n uint32) Option {
	return func(c *config) { c.maxConcurrentStreams = n }
}

// WithDefaultTimeout sets a deadline applied to RPCs that carry no
// grpc-timeout header of their own. The zero value (the default) means
// no server-imposed deadline.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *config) { c.defaultTimeout = d }
}

// WithGracefulTimeout bounds how long Shutdown waits for in-flight RPCs
// to finish. RPCs still running when it expires are not terminated and
// are not sent an UNAVAILABLE status; Shutdown returns the context error.
func WithGracefulTimeout(d time.Duration) Option {
	return func(c *config) { c.gracefulTimeout = d }
}

// WithLogger installs a zap logger for connection/stream lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithUnaryInterceptor appends a unary interceptor to the server's chain.
func WithUnaryInterceptor(ic interceptor.UnaryInterceptor) Option {
	return func(c *config) { c.unaryInterceptors = append(c.unaryInterceptors, ic) }
}
