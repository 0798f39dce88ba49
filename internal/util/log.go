package util

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFromContext returns the request/run-scoped logger attached to ctx,
// falling back to the global logger so callers never get a silently
// disabled one.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}
	return l
}

// WithLogger attaches a logger to the context for LogFromContext to find.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// LogLevelFromString parses lvl, defaulting to debug on garbage input so a
// typo in config yields more logging rather than less.
func LogLevelFromString(lvl string) zerolog.Level {
	level, err := zerolog.ParseLevel(lvl)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to parse log level %q, defaulting to %s", lvl, zerolog.DebugLevel)
		return zerolog.DebugLevel
	}
	return level
}
