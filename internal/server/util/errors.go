package util

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/query"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusFromError maps a domain error to the HTTP status returned to the
// client.
func StatusFromError(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, loader.ErrUnreadableFile):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrNotFinalized), errors.Is(err, query.ErrStaleCommunities):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func ErrorJSON(c echo.Context, code int, err error) error {
	return c.JSON(code, ErrorResponse{Detail: err.Error()})
}

// HTTPErrorHandler renders errors that escape a handler, including the
// ones raised by echo itself, as ErrorResponse.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	detail := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
	}

	if err := c.JSON(StatusFromError(err), ErrorResponse{Detail: detail}); err != nil {
		c.Logger().Error(err)
	}
}
