package health

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/util"
)

// GetReadyRoute reports readiness: the ledger must be reachable.
func GetReadyRoute(s *simulator.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

func getReadyHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := s.Mint.SignedCount(); err != nil {
			util.LogFromEchoContext(c).Error().Err(err).Msg("Ledger not reachable")
			return c.String(http.StatusServiceUnavailable, "Not ready.")
		}
		return c.String(http.StatusOK, "Ready.")
	}
}
