package mintapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/simulator"
)

func GetKeysetsRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.GET("/keysets", getKeysetsHandler(s))
}

func getKeysetsHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		keysets := s.Mint.Keysets()

		resp := cashu.GetKeysetsResponse{Keysets: make([]cashu.KeysetInfo, 0, len(keysets))}
		for _, keyset := range keysets {
			resp.Keysets = append(resp.Keysets, cashu.KeysetInfo{
				ID:     keyset.ID.String(),
				Unit:   keyset.Unit,
				Active: keyset.Active,
			})
		}
		return c.JSON(http.StatusOK, resp)
	}
}
