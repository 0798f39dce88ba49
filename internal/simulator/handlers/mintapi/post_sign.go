package mintapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/util"
)

// PostSignRoute issues signatures for fresh outputs. Real mints only sign
// inside a payment flow; the simulator exposes signing directly so tests and
// demos can seed history.
func PostSignRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.POST("/sign", postSignHandler(s))
}

func postSignHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body cashu.PostSignRequest
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

		signatures, err := s.Mint.Sign(body.Outputs)
		if err != nil {
			return err
		}

		log.Debug().Int("signed", len(signatures)).Msg("Issued blinded signatures")

		return c.JSON(http.StatusOK, cashu.PostSignResponse{Signatures: signatures})
	}
}
