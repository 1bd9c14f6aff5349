// Package model defines shared types for the gateway.
package model

import (
	"context"
	"io"
	"net/http"
)

// GatewayRequest represents a client request to be relayed to the backend.
// RawQuery is the inbound query string exactly as received, never decoded
// or re-encoded; empty means no query string is attached to the outbound
// URL. ContentLength mirrors the inbound request so the outbound body
// framing matches; -1 means unknown.
type GatewayRequest struct {
	Ctx           context.Context
	Method        string
	Path          string
	RawQuery      string
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

// GatewayResponse represents the backend response to be streamed back.
type GatewayResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
