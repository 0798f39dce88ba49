package keysets

import (
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("keysets",
		newList(),
		newShow(),
	)
}

func newClient(cfg config.Service) (*mint.Client, error) {
	return mint.New(cfg.Mint.URL, mint.Options{
		Timeout:        cfg.Mint.Timeout,
		MaxAttempts:    cfg.Mint.MaxAttempts,
		BackoffBase:    cfg.Mint.BackoffBase,
		BackoffMax:     cfg.Mint.BackoffMax,
		RejectCooldown: cfg.Mint.RejectCooldown,
	})
}
