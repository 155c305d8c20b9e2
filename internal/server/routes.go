package server

import (
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/metrics"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	e.POST("/upload", routes.UploadHandler)
	e.GET("/graph", routes.GetGraphHandler)
	e.POST("/finalize_graph", routes.FinalizeGraphHandler)
	e.GET("/graph_status", routes.GetGraphStatusHandler)
	e.POST("/query", routes.QueryHandler)
}
