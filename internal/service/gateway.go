// Package service implements the core forwarding logic of the gateway.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"mentions-gateway/internal/client"
	"mentions-gateway/internal/config"
	"mentions-gateway/internal/model"
)

// deniedRequestHeaders are the inbound headers never forwarded to the backend.
// Host and Content-Length are recomputed by the transport for the outbound
// request; Connection is hop-by-hop. Everything else, including Authorization
// and Cookie, passes through verbatim.
var deniedRequestHeaders = map[string]bool{
	"Host":           true,
	"Connection":     true,
	"Content-Length": true,
}

// GatewayService relays inbound requests to the configured backend origin.
type GatewayService struct {
	client *client.BackendClient
	cfg    *config.Config
	logger *slog.Logger
	origin *url.URL
}

// NewGatewayService creates a GatewayService. The backend origin comes from
// the resolved configuration; it is parsed once here and never re-read.
func NewGatewayService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*GatewayService, error) {
	u, err := url.Parse(cfg.Backend.Origin)
	if err != nil {
		return nil, fmt.Errorf("parse backend origin: %w", err)
	}

	return &GatewayService{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "gateway_service"),
		origin: u,
	}, nil
}

// Forward sends a GatewayRequest to the backend and returns its response
// verbatim: same status code, unfiltered headers, streamed body. The caller
// is responsible for closing the response body.
//
// The inbound body streams through unmodified; the gateway adds no headers,
// performs no retries, and caches nothing. An empty RawQuery means no query
// string is attached (the fixed reset-password route always passes empty).
func (s *GatewayService) Forward(gr *model.GatewayRequest) (*model.GatewayResponse, error) {
	backendURL := s.buildBackendURL(gr.Path, gr.RawQuery)
	header := copyRequestHeaders(gr.Header)

	s.logger.Debug("forwarding request",
		"method", gr.Method,
		"path", gr.Path,
	)

	resp, err := s.client.DoStream(gr.Ctx, gr.Method, backendURL, header, gr.Body, gr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}

	return resp, nil
}

// buildBackendURL joins the backend origin with the inbound path. The raw
// query string is reattached byte-for-byte: no decoding, no re-encoding,
// no reordering of parameters.
func (s *GatewayService) buildBackendURL(path, rawQuery string) string {
	u := *s.origin
	u.Path = path
	u.RawQuery = rawQuery
	return u.String()
}

// copyRequestHeaders copies every inbound header except the denylisted ones,
// matching keys case-insensitively via canonicalization and preserving all
// values unchanged.
func copyRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if deniedRequestHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = vals
	}
	return dst
}
