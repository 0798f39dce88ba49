package restore

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/398ja/cashu-recovery/internal/metrics"
	"github.com/398ja/cashu-recovery/internal/recovery"
	"github.com/398ja/cashu-recovery/internal/storage"
	"github.com/398ja/cashu-recovery/internal/util"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func newResume() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume one keyset's scan from a counter",
		Long: `Scans a single keyset starting at --start with normal gap detection, as if
a full run had reached that counter. Feed it the NEXT COUNTER printed by an
interrupted or failed run to pick up where that run stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyset, err := cmd.Flags().GetString(keysetFlag)
			if err != nil {
				return err
			}
			start, err := cmd.Flags().GetUint32(startFlag)
			if err != nil {
				return err
			}

			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runResume(ctx, cfg, keyset, start)
			})
		},
	}

	cmd.Flags().String(keysetFlag, "", "keyset ID to scan")
	cmd.Flags().Uint32(startFlag, 0, "counter to resume from")
	_ = cmd.MarkFlagRequired(keysetFlag)

	return cmd
}

func runResume(ctx context.Context, cfg config.Service, rawID string, start uint32) error {
	log := util.LogFromContext(ctx)

	if cfg.Wallet.Mnemonic == "" {
		return errors.New("no wallet mnemonic configured, set CASHU_RECOVERY_WALLET_MNEMONIC")
	}

	id, err := cashu.ParseID(rawID)
	if err != nil {
		return err
	}

	m := metrics.NewRecovery(prometheus.DefaultRegisterer)

	client, err := newMintClient(cfg, m)
	if err != nil {
		return err
	}

	var sink recovery.ProofSink
	if cfg.Store.Enabled {
		store, err := storage.Open(cfg.Store.Path)
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

	report, err := engine.RecoverKeyset(ctx, master, id, start)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report, start)
	return report.Err
}
