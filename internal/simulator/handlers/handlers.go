package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/simulator/handlers/health"
	"github.com/398ja/cashu-recovery/internal/simulator/handlers/mintapi"
)

// AttachAllRoutes registers every handler on the server's route groups.
func AttachAllRoutes(s *simulator.Server) {
	s.Router.Routes = []*echo.Route{
		health.GetHealthyRoute(s),
		health.GetReadyRoute(s),
		mintapi.GetInfoRoute(s),
		mintapi.GetKeysRoute(s),
		mintapi.GetKeysIDRoute(s),
		mintapi.GetKeysetsRoute(s),
		mintapi.PostCheckStateRoute(s),
		mintapi.PostRestoreRoute(s),
		mintapi.PostSignRoute(s),
	}
}
