package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/metrics"

	"github.com/labstack/echo/v4"
)

// RequestMetrics records every request under its route pattern.
func RequestMetrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					code = he.Code
				} else {
					code = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(c.Request().Method, route, code, time.Since(start))

			return err
		}
	}
}
