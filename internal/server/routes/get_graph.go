package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func GetGraphHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	return c.JSON(http.StatusOK, app.Session.Graph())
}
