package simulator

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/398ja/cashu-recovery/internal/config"
)

// Router holds the route groups handlers attach to.
type Router struct {
	Routes     []*echo.Route
	Management *echo.Group
	V1         *echo.Group
}

// Server bundles everything the simulator's handlers need. Echo and Router
// stay nil until router.Init has run. Metrics is a per-server registry so
// several simulators can coexist in one process.
type Server struct {
	Config  config.Service
	Echo    *echo.Echo
	Router  *Router
	Mint    *Mint
	Metrics *prometheus.Registry
}

// NewServer builds the mint core; call router.Init afterwards to attach the
// HTTP surface.
func NewServer(cfg config.Service) (*Server, error) {
	mint, err := NewMint(cfg.Simulator)
	if err != nil {
		return nil, err
	}

	return &Server{
		Config:  cfg,
		Mint:    mint,
		Metrics: prometheus.NewRegistry(),
	}, nil
}

// Ready reports whether the server was fully initialized.
func (s *Server) Ready() bool {
	return s.Echo != nil && s.Router != nil && s.Mint != nil
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}
	return s.Echo.Start(s.Config.Simulator.ListenAddress)
}

// Shutdown drains the HTTP server and closes the ledger.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("Shutting down simulator")

	if s.Mint != nil {
		defer func() {
			if err := s.Mint.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close simulator ledger")
			}
		}()
	}

	if s.Echo != nil {
		return s.Echo.Shutdown(ctx)
	}
	return nil
}
