// Package engine executes compiled pipeline plans against a warehouse
// connector, recording run history in the state store.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/pkg/connector"
)

// Config holds the engine dependencies and run options.
type Config struct {
	// Logger receives execution progress. Discards if nil.
	Logger *slog.Logger

	// Store records run history. A nil store disables history.
	Store state.Store

	// Profile supplies the connectors a run can execute against.
	Profile config.Profile

	// ProfileName is recorded with each run.
	ProfileName string

	// Connector names the profile connector to execute against. When
	// empty and the profile defines exactly one connector, that one is
	// used.
	Connector string

	// Pipeline is the pipeline name recorded with each run.
	Pipeline string

	// DryRun resolves every step without connecting or writing state.
	DryRun bool
}

// Engine executes plans step by step in dependency order.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine from cfg.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// connect opens the warehouse connector the run executes against.
func (e *Engine) connect(ctx context.Context) (connector.Connector, error) {
	name, err := e.connectorName()
	if err != nil {
		return nil, err
	}
	cc, err := e.cfg.Profile.Connector(name)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("connecting", "connector", name, "type", cc.Type)

	conn, err := connector.New(cc, e.logger)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx, cc); err != nil {
		return nil, fmt.Errorf("failed to connect %q: %w", name, err)
	}
	return conn, nil
}

// connectorName resolves which profile connector to run against: the
// configured name if set, else the profile's only connector.
func (e *Engine) connectorName() (string, error) {
	if e.cfg.Connector != "" {
		return e.cfg.Connector, nil
	}
	switch len(e.cfg.Profile.Connectors) {
	case 0:
		return "", fmt.Errorf("the active profile defines no connectors")
	case 1:
		for name := range e.cfg.Profile.Connectors {
			return name, nil
		}
	}
	return "", fmt.Errorf("the active profile defines %d connectors; set default_connector in %s or pass --connector",
		len(e.cfg.Profile.Connectors), config.ConfigFileName)
}
