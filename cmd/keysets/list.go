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

func newList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every keyset the configured mint publishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithConfig(cmd.Context(), runList)
		},
	}
}

func runList(ctx context.Context, cfg config.Service) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	infos, err := client.Keysets(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYSET\tUNIT\tSTATE\tPATH INDEX")
	for _, info := range infos {
		state := "retired"
		if info.Active {
			state = "active"
		}

		pathIndex := "-"
		if id, err := cashu.ParseID(info.ID); err == nil {
			if index, err := id.PathIndex(); err == nil {
				pathIndex = fmt.Sprintf("%d", index)
			}
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, info.Unit, state, pathIndex)
	}
	return tw.Flush()
}
