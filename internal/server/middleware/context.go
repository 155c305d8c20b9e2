package middleware

import (
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/metrics"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/session"

	"github.com/labstack/echo/v4"
)

type App struct {
	Session *session.Session
	Metrics *metrics.Metrics
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
