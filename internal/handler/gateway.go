package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"mentions-gateway/internal/model"
	"mentions-gateway/internal/service"
)

// GatewayHandler relays dashboard traffic to the backend service.
type GatewayHandler struct {
	service *service.GatewayService
	logger  *slog.Logger
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(svc *service.GatewayService, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		service: svc,
		logger:  logger.With("component", "gateway_handler"),
	}
}

// HandleAPI relays a catch-all /api/* request to the backend, reattaching
// the original query string untouched, and streams the response back.
func (h *GatewayHandler) HandleAPI(c echo.Context) error {
	req := c.Request()
	return h.relay(c, &model.GatewayRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          req.URL.Path,
		RawQuery:      req.URL.RawQuery,
		Header:        req.Header,
		ContentLength: req.ContentLength,
		Body:          req.Body,
	})
}

// HandleResetPassword relays POST /auth/reset-password to the backend. The
// query string is not forwarded on this route; the backend contract takes
// the reset token in the JSON body.
func (h *GatewayHandler) HandleResetPassword(c echo.Context) error {
	req := c.Request()
	return h.relay(c, &model.GatewayRequest{
		Ctx:           req.Context(),
		Method:        req.Method,
		Path:          req.URL.Path,
		RawQuery:      "",
		Header:        req.Header,
		ContentLength: req.ContentLength,
		Body:          req.Body,
	})
}

// relay runs the shared forwarding core and writes the backend response
// verbatim: same status code, all response headers unfiltered, body streamed.
func (h *GatewayHandler) relay(c echo.Context, gr *model.GatewayRequest) error {
	resp, err := h.service.Forward(gr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the backend body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", gr.Path,
		)
	}

	return nil
}

func (h *GatewayHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("gateway error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "backend request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "backend host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "backend connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "backend request failed",
	})
}
