package config

import (
	"context"
	"log/slog"
)

// Context keys for values the root command hands down to subcommands.
// They live here so the commands package can retrieve them without
// creating an import cycle with the cli package.
type (
	configKey struct{}
	loggerKey struct{}
)

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the configuration from the command context.
// Commands run outside the root command (tests, mostly) get defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey{}).(*Config); ok {
		return cfg
	}
	return &Config{
		Profile:   DefaultProfile,
		StatePath: DefaultStateFile,
		Output:    DefaultOutput,
	}
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Safe fallback for code paths that never saw the root command.
	return slog.New(slog.DiscardHandler)
}
