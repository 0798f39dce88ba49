package mintapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/simulator"
)

// GetKeysRoute serves the active keyset's public keys.
func GetKeysRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.GET("/keys", getKeysHandler(s))
}

func getKeysHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := cashu.GetKeysResponse{
			Keysets: []cashu.KeysetKeys{s.Mint.ActiveKeyset().Wire()},
		}
		return c.JSON(http.StatusOK, resp)
	}
}
