package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func FinalizeGraphHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	app.Session.StartFinalize()

	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "Graph finalization started",
	})
}

func GetGraphStatusHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	return c.JSON(http.StatusOK, app.Session.Status())
}
