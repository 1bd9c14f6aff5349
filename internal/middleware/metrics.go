package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"mentions-gateway/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records request count,
// latency, and in-flight gauge for every inbound request, relayed or not.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()

			err := next(c)

			// A handler returning *echo.HTTPError hasn't written the
			// response yet; Echo's central error handler does that after
			// this middleware unwinds. Pull the code off the error so the
			// labels see the status the client will actually get.
			code := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}

			method := metrics.NormalizeMethod(c.Request().Method)
			prefix := metrics.NormalizePath(c.Request().URL.Path)
			status := strconv.Itoa(code)
			elapsed := time.Since(start).Seconds()

			m.RequestsTotal.WithLabelValues(method, status, prefix).Inc()
			m.RequestDuration.WithLabelValues(method, status, prefix).Observe(elapsed)

			return err
		}
	}
}
