package routes

import (
	"net/http"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"

	"github.com/labstack/echo/v4"
)

type queryBody struct {
	Query string `json:"query" validate:"required"`
}

type queryResponse struct {
	Result string `json:"result"`
}

func QueryHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return util.ErrorJSON(c, http.StatusBadRequest, err)
	}
	if err := c.Validate(data); err != nil {
		return util.ErrorJSON(c, http.StatusBadRequest, err)
	}

	start := time.Now()
	result, err := app.Session.Query(c.Request().Context(), data.Query)
	if err != nil {
		logger.Error("[Server] Query failed", "strategy", app.Session.Strategy(), "err", err)
		return util.ErrorJSON(c, util.StatusFromError(err), err)
	}

	logger.Info("[Server] Query answered", "strategy", app.Session.Strategy(), "duration", time.Since(start))

	return c.JSON(http.StatusOK, queryResponse{Result: result})
}
