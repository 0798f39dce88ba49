package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/cashu"
	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/storage"
	"github.com/398ja/cashu-recovery/internal/util"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

const (
	keysetFlag = "keyset"
	memoFlag   = "memo"
)

func newExport() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export spendable proofs as a Cashu token",
		Long: `Serializes the spendable proofs in the local store into a cashuA token and
prints it to stdout, ready to paste into any wallet. Proofs flagged spent or
pending stay behind.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyset, err := cmd.Flags().GetString(keysetFlag)
			if err != nil {
				return err
			}
			memo, err := cmd.Flags().GetString(memoFlag)
			if err != nil {
				return err
			}

			return command.WithConfig(cmd.Context(), func(ctx context.Context, cfg config.Service) error {
				return runExport(ctx, cfg, keyset, memo)
			})
		},
	}

	cmd.Flags().String(keysetFlag, "", "export only this keyset's proofs")
	cmd.Flags().String(memoFlag, "", "memo to embed in the token")

	return cmd
}

func runExport(ctx context.Context, cfg config.Service, rawKeyset string, memo string) error {
	log := util.LogFromContext(ctx)

	store, err := storage.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var proofs cashu.Proofs
	unit := "sat"

	if rawKeyset != "" {
		id, err := cashu.ParseID(rawKeyset)
		if err != nil {
			return err
		}

		stored, err := store.Proofs(id)
		if err != nil {
			return err
		}
		for _, p := range stored {
			if p.Spendable() {
				proofs = append(proofs, p.Proof)
			}
		}

		if keyset, ok, err := store.Keyset(id); err == nil && ok {
			unit = keyset.Unit
		}
	} else {
		all, err := store.AllProofs()
		if err != nil {
			return err
		}

		ids := make([]cashu.ID, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			for _, p := range all[id] {
				if p.Spendable() {
					proofs = append(proofs, p.Proof)
				}
			}
		}
	}

	if len(proofs) == 0 {
		return errors.New("no spendable proofs in store")
	}

	token := cashu.NewToken(proofs, cfg.Mint.URL, unit, memo)
	serialized, err := token.Serialize()
	if err != nil {
		return err
	}

	log.Info().
		Int("proofs", len(proofs)).
		Uint64("amount", uint64(token.Amount())).
		Msg("Exported spendable proofs")

	fmt.Println(serialized)
	return nil
}
