package router

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/simulator/handlers"
)

// Init attaches the HTTP surface to the server: middleware, route groups
// and every handler.
func Init(s *simulator.Server) {
	s.Echo = echo.New()
	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HTTPErrorHandler = simulator.HTTPErrorHandler()

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(requestLogger())
	s.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "cashu_simulator",
		Registerer: s.Metrics,
	}))

	s.Echo.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.Metrics,
	}))

	s.Router = &simulator.Router{
		Management: s.Echo.Group("/-"),
		V1:         s.Echo.Group("/v1"),
	}

	handlers.AttachAllRoutes(s)
}

// requestLogger scopes a zerolog logger to each request and emits one line
// per handled request.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := log.With().
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			l.Debug().
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
			return nil
		}
	}
}
