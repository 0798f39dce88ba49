package keysets

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <keyset-id>",
		Short: "Show one keyset's denominations and public keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runShow(ctx, cfg, args[0])
			})
		},
	}
}

func runShow(ctx context.Context, cfg config.Service, rawID string) error {
	id, err := cashu.ParseID(rawID)
	if err != nil {
		return err
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	keyset, err := client.Keys(ctx, id)
	if err != nil {
		return err
	}

	pathIndex, err := keyset.ID.PathIndex()
	if err != nil {
		return err
	}

	amounts := keyset.Amounts()
	fmt.Printf("Keyset %s\n", keyset.ID)
	fmt.Printf("  unit:          %s\n", keyset.Unit)
	fmt.Printf("  denominations: %d (%d..%d)\n", len(amounts), amounts[0], amounts[len(amounts)-1])
	fmt.Printf("  path index:    %d\n\n", pathIndex)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AMOUNT\tPUBLIC KEY")
	wire := keyset.Wire()
	for _, amount := range amounts {
		fmt.Fprintf(tw, "%d\t%s\n", amount, wire.Keys[fmt.Sprintf("%d", amount)])
	}
	return tw.Flush()
}
