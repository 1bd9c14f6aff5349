package handler

import (
	"fmt"
	"net/url"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mentions-gateway/internal/config"
	"mentions-gateway/internal/metrics"
	"mentions-gateway/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
//
// The /auth/*, /ws/*, /docs and /openapi.json routes are plain rewrites to
// the backend origin, handled by Echo's Proxy middleware rather than the
// forwarding core. WebSocket upgrades on /ws/* ride the proxy's raw TCP
// tunnel. The explicit /auth/reset-password route takes precedence over the
// /auth/* rewrite.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, gateway *GatewayHandler, health *HealthHandler, m *metrics.Metrics) error {
	// Request IDs and security headers only on the gateway's own endpoints;
	// relayed routes must reproduce the backend response without additions.
	own := []echo.MiddlewareFunc{echomw.RequestID(), middleware.SecurityHeaders()}
	e.GET("/healthz", health.Healthz, own...)
	e.GET("/gateway/status", health.Status, own...)

	e.Any("/api/*", gateway.HandleAPI)
	e.POST("/auth/reset-password", gateway.HandleResetPassword)

	origin, err := url.Parse(cfg.Backend.Origin)
	if err != nil {
		return fmt.Errorf("parse backend origin for rewrite routes: %w", err)
	}
	rewrite := echomw.Proxy(echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{URL: origin}}))

	e.Any("/auth/*", unreachableHandler, rewrite)
	e.Any("/ws/*", unreachableHandler, rewrite)
	e.GET("/docs", unreachableHandler, rewrite)
	e.GET("/openapi.json", unreachableHandler, rewrite)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})), own...)
	}

	return nil
}

// unreachableHandler anchors routes whose requests are fully consumed by the
// Proxy middleware; it never runs.
func unreachableHandler(echo.Context) error {
	return echo.ErrNotFound
}
