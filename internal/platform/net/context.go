// Package net provides utilities for working with request contexts
package net

import (
	"context"
	"net"
	stdhttp "net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// ClientIP extracts the caller address from a request, preferring the
// RealIP middleware result and falling back to RemoteAddr without port
func ClientIP(r *stdhttp.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}
