package probe

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Check that the configured mint answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}

			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runLiveness(ctx, cfg, verbose)
			})
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "print mint details")

	return cmd
}

func runLiveness(ctx context.Context, cfg config.Service, verbose bool) error {
	client, err := probeClient(cfg)
	if err != nil {
		return err
	}

	info, err := client.Info(ctx)
	if err != nil {
		return errors.Wrapf(err, "mint %s not reachable", client.BaseURL())
	}

	if verbose {
		fmt.Printf("mint:    %s\n", client.BaseURL())
		fmt.Printf("name:    %s\n", info.Name)
		fmt.Printf("version: %s\n", info.Version)
	}

	fmt.Println("Live.")
	return nil
}
