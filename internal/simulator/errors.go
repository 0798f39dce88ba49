package simulator

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/util"
)

// APIError pairs a protocol error body with the HTTP status it rides on.
// Handlers return these (or a bare *cashu.Error for a plain 400) and the
// error handler renders them.
type APIError struct {
	Status int
	Body   *cashu.Error
}

// NewAPIError builds an APIError for one rejection.
func NewAPIError(status int, code int, detail string) *APIError {
	return &APIError{Status: status, Body: cashu.NewError(code, detail)}
}

func (e *APIError) Error() string {
	return e.Body.Error()
}

// HTTPErrorHandler renders every handler error as a Cashu error body, the
// shape wallets and the recovery client expect from a mint.
func HTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := cashu.NewError(cashu.ErrCodeGeneric, "internal error")

		var apiErr *APIError
		var cashuErr *cashu.Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Status
			body = apiErr.Body
		case errors.As(err, &cashuErr):
			status = http.StatusBadRequest
			body = cashuErr
		case errors.As(err, &httpErr):
			status = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				body = cashu.NewError(cashu.ErrCodeGeneric, msg)
			}
		default:
			util.LogFromEchoContext(c).Error().Err(err).Msg("Unhandled error in simulator handler")
		}

		if err := c.JSON(status, body); err != nil {
			util.LogFromEchoContext(c).Warn().Err(err).Msg("Failed to write error response")
		}
	}
}
