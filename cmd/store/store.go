package store

import (
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("store",
		newBalance(),
		newExport(),
		newSnapshot(),
	)
}
