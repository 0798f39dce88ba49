package mintapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/util"
)

// PostRestoreRoute answers restore requests from the signature ledger.
func PostRestoreRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.POST("/restore", postRestoreHandler(s))
}

func postRestoreHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body cashu.PostRestoreRequest
		if err := c.Bind(&body); err != nil {
			return cashu.NewError(cashu.ErrCodeGeneric, "malformed request body")
		}
		if len(body.Outputs) == 0 {
			return cashu.NewError(cashu.ErrCodeGeneric, "no outputs provided")
		}
		if len(body.Outputs) > simulator.MaxBatchOutputs {
			return simulator.NewAPIError(http.StatusRequestEntityTooLarge, cashu.ErrCodeGeneric,
				fmt.Sprintf("too many outputs: %d, limit is %d", len(body.Outputs), simulator.MaxBatchOutputs))
		}

		resp, err := s.Mint.Restore(body.Outputs)
		if err != nil {
			return err
		}

		log.Debug().
			Int("requested", len(body.Outputs)).
			Int("matched", len(resp.Signatures)).
			Msg("Restore request answered")

		return c.JSON(http.StatusOK, resp)
	}
}
