package env

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the effective configuration",
		Long:  "Prints the configuration after env overrides, with wallet secrets redacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithConfig(cmd.Context(), runEnv)
		},
	}
}

func runEnv(ctx context.Context, cfg config.Service) error {
	redacted := cfg
	if redacted.Wallet.Mnemonic != "" {
		redacted.Wallet.Mnemonic = "[redacted]"
	}
	if redacted.Wallet.Passphrase != "" {
		redacted.Wallet.Passphrase = "[redacted]"
	}

	out, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to render configuration")
	}

	fmt.Println(string(out))
	return nil
}
