// Package postgres provides a PostgreSQL warehouse connector.
//
// This file registers the connector with the connector registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/leapflow/pkg/connectors/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapflow/pkg/connector"
)

func init() {
	connector.Register("postgres", func(logger *slog.Logger) connector.Connector { return New(logger) })
}
