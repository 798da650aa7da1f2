// Package interceptor provides a single, thin server-side chain point
// around unary handler invocation — deliberately not a middleware
// framework (the runtime spec's Non-goals exclude "interceptors/
// middleware" as a layered concern; this is the one chain point the
// teacher codebase already carried, kept because it costs nothing; no
// interceptor ships with the runtime, and server.WithUnaryInterceptor is
// how callers install their own).
package interceptor

import "context"

// UnaryInterceptor wraps a single unary call.
type UnaryInterceptor func(ctx context.Context, fullMethod string, req any, handler UnaryHandler) (any, error)

// UnaryHandler is the next link in the chain (or the terminal handler).
type UnaryHandler func(ctx context.Context, req any) (any, error)

// Chain composes interceptors outer-to-inner: the first interceptor in
// the slice runs first and wraps every subsequent one.
func Chain(fullMethod string, interceptors []UnaryInterceptor, terminal UnaryHandler) UnaryHandler {
	h := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		next := h
		ic := interceptors[i]
		h = func(ctx context.Context, req any) (any, error) {
			return ic(ctx, fullMethod, req, next)
		}
	}
	return h
}
