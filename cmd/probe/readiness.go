package probe

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Check that the configured mint can serve a recovery run",
		Long: `Beyond liveness, readiness requires the mint to advertise the NUTs the
recovery flow depends on (07 state checks, 09 restore, 13 deterministic
secrets) and to list at least one keyset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}

			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runReadiness(ctx, cfg, verbose)
			})
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "print keyset details")

	return cmd
}

func runReadiness(ctx context.Context, cfg config.Service, verbose bool) error {
	client, err := probeClient(cfg)
	if err != nil {
		return err
	}

	info, err := client.Info(ctx)
	if err != nil {
		return errors.Wrapf(err, "mint %s not reachable", client.BaseURL())
	}

	for _, nut := range []string{"7", "9", "13"} {
		if !info.NutSupported(nut) {
			return errors.Errorf("mint does not advertise NUT-%s support", nut)
		}
	}

	keysets, err := client.Keysets(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list keysets")
	}
	if len(keysets) == 0 {
		return errors.New("mint lists no keysets")
	}

	if verbose {
		for _, keyset := range keysets {
			state := "retired"
			if keyset.Active {
				state = "active"
			}
			fmt.Printf("keyset %s (%s, %s)\n", keyset.ID, keyset.Unit, state)
		}
	}

	fmt.Println("Ready.")
	return nil
}
