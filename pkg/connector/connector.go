// Package connector provides the warehouse connector contract for
// pipeline execution.
//
// This package contains the public interface that all connectors must
// implement. Concrete implementations are in pkg/connectors/
// subdirectories and register themselves with the factory registry in
// their init() functions.
package connector

import (
	"context"
	"database/sql"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Config describes how to open a connector.
type Config struct {
	// Type selects the registered connector implementation.
	Type string

	// Params holds connector-specific settings, fully resolved. The
	// implementation decodes them into its own typed params struct.
	Params *value.Object
}

// SourceSpec describes the external data a load step ingests. Params
// come from the SOURCE declaration with all variables resolved.
type SourceSpec struct {
	Type   string
	Params *value.Object
}

// Load modes. An empty mode means ModeReplace.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
)

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}

// Connector is the interface all warehouse connectors implement.
type Connector interface {
	// Connect opens the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Ingest loads the described source into table. Mode is "replace"
	// (default) or "append"; which source types are supported depends
	// on the connector.
	Ingest(ctx context.Context, table, mode string, source SourceSpec) error

	// Export writes the result of query to destination in the given
	// format. Options come from the EXPORT statement, fully resolved.
	Export(ctx context.Context, query, destination, format string, options *value.Object) error

	// DialectName returns the SQL dialect name for this connector.
	DialectName() string
}

// fileFormats are source types a warehouse connector reads directly
// from files, without a registered connector of their own.
var fileFormats = map[string]bool{
	"csv":     true,
	"parquet": true,
	"json":    true,
}

// IsFileFormat reports whether t names a file-based source type.
func IsFileFormat(t string) bool {
	return fileFormats[strings.ToLower(t)]
}
