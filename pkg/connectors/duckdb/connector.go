// Package duckdb provides a DuckDB warehouse connector.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/value"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Connector implements the connector.Connector interface for DuckDB.
type Connector struct {
	connector.BaseSQLConnector
}

// New creates a new DuckDB connector instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Connector{
		BaseSQLConnector: connector.BaseSQLConnector{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this connector.
func (c *Connector) DialectName() string {
	return "duckdb"
}

// Connect opens the database file (or an in-memory database), then
// applies extensions and session settings from the params.
func (c *Connector) Connect(ctx context.Context, cfg connector.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := params.Path
	if path == "" {
		path = ":memory:"
	}

	c.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	c.DB = db
	c.Cfg = cfg

	for _, ext := range params.Extensions {
		if err := c.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			_ = c.Close()
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	// Apply settings in a stable order.
	keys := make([]string, 0, len(params.Settings))
	for k := range params.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmt := fmt.Sprintf("SET %s = %s", k, quoteLiteral(params.Settings[k]))
		if err := c.Exec(ctx, stmt); err != nil {
			_ = c.Close()
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// Ingest loads a source into table. File sources (csv, parquet, json)
// go through the matching read_* table function; postgres sources are
// attached read-only through the postgres extension and copied.
func (c *Connector) Ingest(ctx context.Context, table, mode string, source connector.SourceSpec) error {
	if c.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	mode, err := connector.NormalizeMode(mode)
	if err != nil {
		return err
	}

	if connector.IsFileFormat(source.Type) {
		params, err := parseFileParams(source.Params)
		if err != nil {
			return err
		}
		relation, err := readRelation(source.Type, params)
		if err != nil {
			return err
		}
		c.Logger.Debug("ingesting file source",
			slog.String("table", table),
			slog.String("type", source.Type),
			slog.String("path", params.Path))
		return c.Exec(ctx, materializeSQL(table, mode, relation))
	}

	if strings.EqualFold(source.Type, "postgres") {
		return c.ingestPostgres(ctx, table, mode, source.Params)
	}

	return fmt.Errorf("source type %q is not supported by the duckdb connector", source.Type)
}

// ingestPostgres attaches the upstream database via the postgres
// extension and copies one table out of it.
func (c *Connector) ingestPostgres(ctx context.Context, table, mode string, obj *value.Object) error {
	params, err := parsePostgresSourceParams(obj, table)
	if err != nil {
		return err
	}

	alias := "src_" + strings.ToLower(table)
	attach := fmt.Sprintf("INSTALL postgres; LOAD postgres; ATTACH IF NOT EXISTS %s AS %s (TYPE postgres, READ_ONLY);",
		quoteLiteral(params.DSN), alias)
	if err := c.Exec(ctx, attach); err != nil {
		return fmt.Errorf("failed to attach postgres source: %w", err)
	}

	relation := fmt.Sprintf("%s.%s.%s", alias, params.Schema, params.Table)
	c.Logger.Debug("ingesting postgres source",
		slog.String("table", table),
		slog.String("relation", relation))
	return c.Exec(ctx, materializeSQL(table, mode, relation))
}

// Export runs COPY (query) TO destination in the requested format.
func (c *Connector) Export(ctx context.Context, query, destination, format string, options *value.Object) error {
	if c.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	stmt, err := exportSQL(query, destination, format, options)
	if err != nil {
		return err
	}
	c.Logger.Debug("exporting",
		slog.String("destination", destination),
		slog.String("format", format))
	return c.Exec(ctx, stmt)
}

// Ensure Connector implements connector.Connector interface
var _ connector.Connector = (*Connector)(nil)
