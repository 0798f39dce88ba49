package util

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// LogFromEchoContext returns the logger scoped to the request behind c.
func LogFromEchoContext(c echo.Context) *zerolog.Logger {
	return LogFromContext(c.Request().Context())
}
