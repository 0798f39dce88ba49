package health

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/simulator"
)

func GetHealthyRoute(s *simulator.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

func getHealthyHandler(_ *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "OK.")
	}
}
