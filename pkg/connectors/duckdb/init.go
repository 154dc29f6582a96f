// Package duckdb provides a DuckDB warehouse connector.
//
// This file registers the connector with the connector registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/leapflow/pkg/connectors/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapflow/pkg/connector"
)

func init() {
	connector.Register("duckdb", func(logger *slog.Logger) connector.Connector { return New(logger) })
}
