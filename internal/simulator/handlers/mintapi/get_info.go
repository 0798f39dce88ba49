package mintapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/simulator"
)

func GetInfoRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.GET("/info", getInfoHandler(s))
}

func getInfoHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Mint.Info())
	}
}
