package command

import (
	"context"

	"github.com/398ja/cashu-recovery/internal/config"
	"github.com/398ja/cashu-recovery/internal/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewSubcommandGroup returns a parent command that only groups
// subcommands; invoking it bare prints its help.
func NewSubcommandGroup(name string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use: name,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(subcommands...)
	return cmd
}

// WithConfig loads the service config from the environment, applies its
// logger settings and runs fn with a logger-carrying context. The returned
// error is fn's own, so commands can os.Exit on it uniformly.
func WithConfig(ctx context.Context, fn func(ctx context.Context, cfg config.Service) error) error {
	return WithLoadedConfig(ctx, config.DefaultServiceConfigFromEnv(), fn)
}

// WithLoadedConfig is WithConfig for a config the caller already holds,
// which is what tests want.
func WithLoadedConfig(ctx context.Context, cfg config.Service, fn func(ctx context.Context, cfg config.Service) error) error {
	logger := ConfigureLogger(cfg.Logger)
	ctx = logger.WithContext(ctx)
	return fn(ctx, cfg)
}

// ConfigureLogger applies the logger config process-wide and returns the
// root logger.
func ConfigureLogger(cfg config.Logger) zerolog.Logger {
	zerolog.SetGlobalLevel(util.LogLevelFromString(cfg.Level))

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
		}))
	}

	return log.Logger
}
