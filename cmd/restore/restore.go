package restore

import (
	"github.com/spf13/cobra"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/metrics"
	"github.com/398ja/cashu-recovery/internal/mint"
	"github.com/398ja/cashu-recovery/internal/recovery"
	"github.com/398ja/cashu-recovery/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("restore",
		newRun(),
		newResume(),
		newRange(),
	)
}

// newMintClient builds the mint client from config, with retries feeding the
// recovery metrics.
func newMintClient(cfg config.Service, m *metrics.Recovery) (*mint.Client, error) {
	return mint.New(cfg.Mint.URL, mint.Options{
		Timeout:        cfg.Mint.Timeout,
		MaxAttempts:    cfg.Mint.MaxAttempts,
		BackoffBase:    cfg.Mint.BackoffBase,
		BackoffMax:     cfg.Mint.BackoffMax,
		RejectCooldown: cfg.Mint.RejectCooldown,
		OnRetry:        m.RetryObserved,
	})
}

func newEngine(cfg config.Service, client *mint.Client, m *metrics.Recovery, sink recovery.ProofSink) (*recovery.Engine, error) {
	return recovery.NewEngine(client, recovery.Options{
		BatchSize:           cfg.Scan.BatchSize,
		EmptyBatchThreshold: cfg.Scan.EmptyBatchThreshold,
		MaxParallelKeysets:  cfg.Scan.MaxParallelKeysets,
		CheckSpent:          cfg.Scan.CheckSpent,
		Metrics:             m,
		Sink:                sink,
	})
}
