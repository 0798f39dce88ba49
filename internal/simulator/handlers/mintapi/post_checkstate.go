package mintapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/simulator"
)

func PostCheckStateRoute(s *simulator.Server) *echo.Route {
	return s.Router.V1.POST("/checkstate", postCheckStateHandler(s))
}

func postCheckStateHandler(s *simulator.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body cashu.PostCheckStateRequest
		if err := c.Bind(&body); err != nil {
			return cashu.NewError(cashu.ErrCodeGeneric, "malformed request body")
		}
		if len(body.Ys) > simulator.MaxBatchOutputs {
			return simulator.NewAPIError(http.StatusRequestEntityTooLarge, cashu.ErrCodeGeneric,
				fmt.Sprintf("too many Ys: %d, limit is %d", len(body.Ys), simulator.MaxBatchOutputs))
		}

		states, err := s.Mint.CheckState(body.Ys)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cashu.PostCheckStateResponse{States: states})
	}
}
