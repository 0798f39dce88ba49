package mintapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/simulator"
)

// GetKeysIDRoute serves one keyset's public keys by ID, retired generations
// included.
func GetKeysIDRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.GET("/keys/:id", getKeysIDHandler(s))
}

func getKeysIDHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := cashu.ParseID(c.Param("id"))
		if err != nil {
			return cashu.NewError(cashu.ErrCodeKeysetUnknown, fmt.Sprintf("invalid keyset id %q", c.Param("id")))
		}

		keyset, ok := s.Mint.Keyset(id)
		if !ok {
			return simulator.NewAPIError(http.StatusNotFound, cashu.ErrCodeKeysetUnknown, fmt.Sprintf("unknown keyset %s", id))
		}

		return c.JSON(http.StatusOK, cashu.GetKeysResponse{Keysets: []cashu.KeysetKeys{keyset.Wire()}})
	}
}
