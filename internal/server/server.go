package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/metrics"
	mid "github.com/OFFIS-RIT/kiwi/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/session"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewServerParams configures the HTTP server. UploadLimit uses the echo
// body limit syntax, e.g. "50M".
type NewServerParams struct {
	Session     *session.Session
	Metrics     *metrics.Metrics
	UploadLimit string
}

func NewServer(params NewServerParams) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = util.HTTPErrorHandler

	app := &mid.App{
		Session: params.Session,
		Metrics: params.Metrics,
	}

	bodyLimit := params.UploadLimit
	if bodyLimit == "" {
		bodyLimit = "50M"
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Error("[Server] Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "err", v.Error)
				return nil
			}
			logger.Debug("[Server] Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestMetrics(params.Metrics))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(mid.AppContextMiddleware(app))

	RegisterRoutes(e, params.Metrics)

	return e
}

// Run serves e on addr until ctx is cancelled and then shuts it down
// gracefully.
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] Starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
