package simulator

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/crypto"
	"github.com/398ja/cashu-recovery/internal/derivation"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

const (
	keysetFlag  = "keyset"
	amountsFlag = "amounts"
	totalFlag   = "total"
	counterFlag = "start-counter"
)

func newIssue() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Seed signature history for the configured wallet",
		Long: `Derives deterministic outputs from the wallet mnemonic and has the mint at
the configured URL sign them, one output per amount starting at the given
counter. Afterwards a restore run finds them again, which makes this the
quickest way to rehearse a recovery end to end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyset, err := cmd.Flags().GetString(keysetFlag)
			if err != nil {
				return err
			}
			amounts, err := cmd.Flags().GetInt64Slice(amountsFlag)
			if err != nil {
				return err
			}
			total, err := cmd.Flags().GetUint64(totalFlag)
			if err != nil {
				return err
			}
			counter, err := cmd.Flags().GetUint32(counterFlag)
			if err != nil {
				return err
			}

			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runIssue(ctx, cfg, keyset, amounts, total, counter)
			})
		},
	}

	cmd.Flags().String(keysetFlag, "", "keyset to issue under, default is the mint's active keyset")
	cmd.Flags().Int64Slice(amountsFlag, []int64{1, 2, 4, 8}, "denominations to issue, one proof each")
	cmd.Flags().Uint64(totalFlag, 0, "amount to issue, split into power-of-two denominations; overrides --amounts")
	cmd.Flags().Uint32(counterFlag, 0, "derivation counter of the first output")

	return cmd
}

func runIssue(ctx context.Context, cfg config.Service, rawKeyset string, amounts []int64, total uint64, counter uint32) error {
	if cfg.Wallet.Mnemonic == "" {
		return errors.New("no wallet mnemonic configured, set CASHU_RECOVERY_WALLET_MNEMONIC")
	}

	var denominations []cashu.Amount
	if total > 0 {
		denominations = cashu.Amount(total).Split()
	} else {
		for _, amount := range amounts {
			if amount <= 0 || amount&(amount-1) != 0 {
				return errors.Errorf("amount %d is not a power of two", amount)
			}
			denominations = append(denominations, cashu.Amount(amount))
		}
	}
	if len(denominations) == 0 {
		return errors.New("nothing to issue")
	}

	client, err := mint.New(cfg.Mint.URL, mint.Options{Timeout: cfg.Mint.Timeout})
	if err != nil {
		return err
	}

	var id cashu.ID
	if rawKeyset != "" {
		id, err = cashu.ParseID(rawKeyset)
		if err != nil {
			return err
		}
	} else {
		active, err := client.ActiveKeys(ctx)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return errors.Errorf("mint %s has no active keyset", client.BaseURL())
		}
		id = active[0].ID
	}

	master, err := derivation.NewMasterKeyFromMnemonic(cfg.Wallet.Mnemonic, cfg.Wallet.Passphrase)
	if err != nil {
		return errors.Wrap(err, "failed to derive master key from mnemonic")
	}
	defer master.Zero()

	outputs := make([]cashu.BlindedMessage, 0, len(denominations))
	var issued cashu.Amount
	for i, amount := range denominations {
		c := counter + uint32(i)

		secret, err := master.DeriveSecret(id, c)
		if err != nil {
			return err
		}
		factor, err := master.DeriveBlindingFactor(id, c)
		if err != nil {
			return err
		}
		point, err := crypto.BlindMessage(secret.Value, factor)
		if err != nil {
			return err
		}

		outputs = append(outputs, cashu.NewBlindedMessage(amount, id, point))
		issued += amount
	}

	if _, err := client.Sign(ctx, outputs); err != nil {
		return errors.Wrap(err, "mint refused to sign")
	}

	fmt.Printf("Issued %d proofs totalling %d under keyset %s, counters [%d, %d)\n",
		len(outputs), issued, id, counter, counter+uint32(len(outputs)))
	return nil
}
