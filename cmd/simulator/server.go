package simulator

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/simulator"
	"github.com/398ja/cashu-recovery/internal/simulator/router"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newServer() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the local development mint",
		Long: `Serves a simulated Cashu mint on the configured listen address. With a
fixed CASHU_RECOVERY_SIMULATOR_SEED its keyset IDs are stable across
restarts; with CASHU_RECOVERY_SIMULATOR_DATABASE_PATH the signature ledger
survives them too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithConfig(cmd.Context(), runServer)
		},
	}
}

func runServer(ctx context.Context, cfg config.Service) error {
	s, err := simulator.NewServer(cfg)
	if err != nil {
		return err
	}

	router.Init(s)

	go func() {
		log.Info().Str("listen_address", cfg.Simulator.ListenAddress).Msg("Simulator listening")
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start simulator")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
