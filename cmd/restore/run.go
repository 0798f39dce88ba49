package restore

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/backup"
	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/398ja/cashu-recovery/internal/metrics"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/recovery"
	"github.com/398ja/cashu-recovery/internal/storage"
	"github.com/398ja/cashu-recovery/internal/util"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

const (
	keysetFlag     = "keyset"
	checkSpentFlag = "check-spent"
)

func newRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Recover proofs for the configured wallet",
		Long: `Scans the configured mint for proofs belonging to the wallet mnemonic and
reconstructs them. The mnemonic is read from CASHU_RECOVERY_WALLET_MNEMONIC,
never from a flag, so it cannot leak through the process list.

Without --keyset every keyset the mint lists is scanned, retired generations
included.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keysets, err := cmd.Flags().GetStringSlice(keysetFlag)
			if err != nil {
				return err
			}
			checkSpent, err := cmd.Flags().GetBool(checkSpentFlag)
			if err != nil {
				return err
			}

			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				if len(keysets) > 0 {
					cfg.Scan.Keysets = keysets
				}
				if cmd.Flags().Changed(checkSpentFlag) {
					cfg.Scan.CheckSpent = checkSpent
				}
				return runRestore(ctx, cfg)
			})
		},
	}

	cmd.Flags().StringSlice(keysetFlag, nil, "keyset ID to scan, repeatable; default is every keyset the mint lists")
	cmd.Flags().Bool(checkSpentFlag, false, "check recovered proofs against the mint's spend ledger")

	return cmd
}

func runRestore(ctx context.Context, cfg config.Service) error {
	log := util.LogFromContext(ctx)

	if cfg.Wallet.Mnemonic == "" {
		return errors.New("no wallet mnemonic configured, set CASHU_RECOVERY_WALLET_MNEMONIC")
	}

	m := metrics.NewRecovery(prometheus.DefaultRegisterer)

	client, err := newMintClient(cfg, m)
	if err != nil {
		return err
	}

	ids, err := resolveKeysets(ctx, client, cfg.Scan.Keysets)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.Errorf("mint %s lists no keysets", client.BaseURL())
	}

	var sink recovery.ProofSink
	var store *storage.Store
	if cfg.Store.Enabled {
		store, err = storage.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close proof store")
			}
		}()
		sink = store
	}

	engine, err := newEngine(cfg, client, m, sink)
	if err != nil {
		return err
	}

	master, err := derivation.NewMasterKeyFromMnemonic(cfg.Wallet.Mnemonic, cfg.Wallet.Passphrase)
	if err != nil {
		return errors.Wrap(err, "failed to derive master key from mnemonic")
	}
	defer master.Zero()

	result, err := engine.Recover(ctx, master, ids)
	if err != nil {
		return err
	}

	if store != nil {
		cacheKeysets(ctx, client, store, result)
	}

	printResult(os.Stdout, result)

	if cfg.Backup.SnapshotPath != "" {
		if err := writeSnapshot(master, cfg, result); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Backup.SnapshotPath).Msg("Encrypted snapshot written")
	}

	if failed := result.Failed(); len(failed) > 0 {
		return errors.Errorf("%d of %d keysets failed to restore", len(failed), len(result.Reports))
	}
	return nil
}

func resolveKeysets(ctx context.Context, client *mint.Client, pinned []string) ([]cashu.ID, error) {
	if len(pinned) > 0 {
		ids := make([]cashu.ID, 0, len(pinned))
		for _, raw := range pinned {
			id, err := cashu.ParseID(raw)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	infos, err := client.Keysets(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]cashu.ID, 0, len(infos))
	for _, info := range infos {
		id, err := cashu.ParseID(info.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "mint listed unusable keyset %q", info.ID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// cacheKeysets stores the mint keys of every keyset that yielded proofs, so
// store subcommands can work offline later. Failures only cost the cache.
func cacheKeysets(ctx context.Context, client *mint.Client, store *storage.Store, result *recovery.Result) {
	log := util.LogFromContext(ctx)

	for _, report := range result.Reports {
		if report.Err != nil || len(report.Proofs) == 0 {
			continue
		}

		keyset, err := client.Keys(ctx, report.KeysetID)
		if err == nil {
			err = store.SaveKeyset(keyset)
		}
		if err != nil {
			log.Warn().Err(err).Str("keyset_id", report.KeysetID.String()).Msg("Failed to cache keyset")
		}
	}
}

func printResult(w io.Writer, result *recovery.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYSET\tPROOFS\tAMOUNT\tNEXT COUNTER\tSTATUS")
	for _, report := range result.Reports {
		status := "ok"
		if report.Err != nil {
			status = report.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
			report.KeysetID, len(report.Proofs), report.Amount(), report.NextCounter, status)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nRecovered %d total, %d spendable, across %d keysets in %s\n",
		result.TotalAmount(), result.Spendable().Amount(), len(result.Reports), result.Duration.Round(time.Millisecond))
}

func writeSnapshot(master *derivation.MasterKey, cfg config.Service, result *recovery.Result) error {
	snapshot := &backup.Snapshot{
		CreatedAt: time.Now().UTC(),
		MintURL:   cfg.Mint.URL,
		Keysets:   make([]backup.SnapshotKeyset, 0, len(result.Reports)),
	}
	for _, report := range result.Reports {
		if report.Err != nil {
			continue
		}
		snapshot.Keysets = append(snapshot.Keysets, backup.SnapshotKeyset{
			ID:          report.KeysetID,
			NextCounter: report.NextCounter,
			Proofs:      report.WireProofs(),
		})
	}

	blob, err := backup.Seal(master, snapshot)
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(cfg.Backup.SnapshotPath, blob, 0o600), "failed to write snapshot")
}
