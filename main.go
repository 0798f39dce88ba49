package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/cmd/env"
	"github.com/398ja/cashu-recovery/cmd/keysets"
	"github.com/398ja/cashu-recovery/cmd/probe"
	"github.com/398ja/cashu-recovery/cmd/restore"
	"github.com/398ja/cashu-recovery/cmd/simulator"
	"github.com/398ja/cashu-recovery/cmd/store"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "cashu-recovery",
		Short: "Deterministic wallet recovery for Cashu mints",
		Long: `Recovers ecash proofs from nothing but a BIP-39 mnemonic by replaying the
wallet's deterministic outputs against a mint's restore endpoint, keyset by
keyset, until the counter space goes quiet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		env.New(),
		keysets.New(),
		probe.New(),
		restore.New(),
		simulator.New(),
		store.New(),
	)

	return root
}
