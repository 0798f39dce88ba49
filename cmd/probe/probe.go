package probe

import (
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

const (
	verboseFlag string = "verbose"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
}

// probeClient builds a single-attempt client; probes report the first
// failure instead of retrying through it.
func probeClient(cfg config.Service) (*mint.Client, error) {
	return mint.New(cfg.Mint.URL, mint.Options{
		Timeout:     cfg.Mint.Timeout,
		MaxAttempts: 1,
	})
}
