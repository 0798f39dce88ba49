package store

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/storage"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newBalance() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Summarize the proofs in the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithConfig(cmd.Context(), runBalance)
		},
	}
}

func runBalance(ctx context.Context, cfg config.Service) error {
	store, err := storage.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.Summaries()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("Store is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYSET\tPROOFS\tSPENDABLE\tAMOUNT\tSPENT")
	for _, summary := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
			summary.KeysetID, summary.Proofs, summary.Spendable, summary.Amount, summary.SpentAmount)
	}
	_ = tw.Flush()

	balance, err := store.Balance()
	if err != nil {
		return err
	}
	fmt.Printf("\nSpendable balance: %d\n", balance)
	return nil
}
