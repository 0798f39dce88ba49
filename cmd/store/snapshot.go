package store

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/backup"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newSnapshot() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <path>",
		Short: "Decrypt and summarize an encrypted snapshot",
		Long: `Opens a snapshot written by restore run. Decryption needs the same wallet
mnemonic the snapshot was sealed with, read from
CASHU_RECOVERY_WALLET_MNEMONIC.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runSnapshot(ctx, cfg, args[0])
			})
		},
	}
}

func runSnapshot(ctx context.Context, cfg config.Service, path string) error {
	if cfg.Wallet.Mnemonic == "" {
		return errors.New("no wallet mnemonic configured, set CASHU_RECOVERY_WALLET_MNEMONIC")
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read snapshot %s", path)
	}

	master, err := derivation.NewMasterKeyFromMnemonic(cfg.Wallet.Mnemonic, cfg.Wallet.Passphrase)
	if err != nil {
		return errors.Wrap(err, "failed to derive master key from mnemonic")
	}
	defer master.Zero()

	snapshot, err := backup.Open(master, blob)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot of %s, created %s\n\n", snapshot.MintURL, snapshot.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYSET\tPROOFS\tAMOUNT\tNEXT COUNTER")
	for _, keyset := range snapshot.Keysets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n",
			keyset.ID, len(keyset.Proofs), keyset.Proofs.Amount(), keyset.NextCounter)
	}
	_ = tw.Flush()

	fmt.Printf("\nTotal: %d\n", snapshot.Amount())
	return nil
}
