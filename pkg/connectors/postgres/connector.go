// Package postgres provides a PostgreSQL warehouse connector.
package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Connector implements the connector.Connector interface for
// PostgreSQL.
type Connector struct {
	connector.BaseSQLConnector
}

// New creates a new PostgreSQL connector instance.
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
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (c *Connector) Connect(ctx context.Context, cfg connector.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	dsn := buildDSN(params)

	c.Logger.Debug("connecting to postgres",
		slog.String("host", params.Host),
		slog.String("database", params.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	c.DB = db
	c.Cfg = cfg
	return nil
}

// Ingest loads a csv source into table using COPY FROM STDIN. In
// replace mode the table is recreated with TEXT columns named after
// the CSV header; in append mode the table must already exist.
func (c *Connector) Ingest(ctx context.Context, table, mode string, source connector.SourceSpec) error {
	if c.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	mode, err := connector.NormalizeMode(mode)
	if err != nil {
		return err
	}
	if !strings.EqualFold(source.Type, "csv") {
		return fmt.Errorf("source type %q is not supported by the postgres connector", source.Type)
	}

	params, err := parseFileParams(source.Params)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(params.Path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // path comes from the pipeline definition
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if mode == connector.ModeReplace {
		headers, err := csv.NewReader(file).Read()
		if err != nil {
			return fmt.Errorf("failed to read CSV header: %w", err)
		}
		if err := c.createTextTable(ctx, table, headers); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		if _, err := file.Seek(0, 0); err != nil {
			return fmt.Errorf("failed to reset file: %w", err)
		}
	}

	c.Logger.Debug("ingesting csv source",
		slog.String("table", table),
		slog.String("path", absPath))

	if err := c.copyFromCSV(ctx, table, file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	return nil
}

// createTextTable creates or replaces a table with all TEXT columns.
func (c *Connector) createTextTable(ctx context.Context, table string, columns []string) error {
	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
	if _, err := c.DB.ExecContext(ctx, dropSQL); err != nil {
		return err
	}

	var colDefs []string
	for _, col := range columns {
		colDefs = append(colDefs, fmt.Sprintf("%s TEXT", sanitizeIdentifier(col)))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(colDefs, ", "))
	_, err := c.DB.ExecContext(ctx, createSQL)
	return err
}

// copyFromCSV uses PostgreSQL COPY to load CSV data.
func (c *Connector) copyFromCSV(ctx context.Context, table string, file *os.File) error {
	conn, err := c.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()
		copySQL := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv, HEADER true)", table)
		_, err := pgxConn.PgConn().CopyFrom(ctx, file, copySQL)
		return err
	})
}

// Export writes query results to a csv file using COPY TO STDOUT.
func (c *Connector) Export(ctx context.Context, query, destination, format string, options *value.Object) error {
	if c.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if !strings.EqualFold(format, "csv") {
		return fmt.Errorf("export format %q is not supported by the postgres connector", format)
	}

	header := true
	if options != nil {
		if v, ok := options.Get("header"); ok {
			b, ok := v.(value.Bool)
			if !ok {
				return fmt.Errorf("export option header must be a boolean")
			}
			header = bool(b)
		}
	}

	absPath, err := filepath.Abs(destination)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	out, err := os.Create(absPath) //nolint:gosec // destination comes from the pipeline definition
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() { _ = out.Close() }()

	conn, err := c.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	c.Logger.Debug("exporting",
		slog.String("destination", absPath),
		slog.String("format", "csv"))

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()
		copySQL := fmt.Sprintf("COPY (%s) TO STDOUT WITH (FORMAT csv, HEADER %t)", query, header)
		_, err := pgxConn.PgConn().CopyTo(ctx, out, copySQL)
		return err
	})
}

// sanitizeIdentifier makes a column name safe for SQL.
func sanitizeIdentifier(name string) string {
	safe := strings.ReplaceAll(name, " ", "_")
	safe = strings.ReplaceAll(safe, "-", "_")
	if strings.ContainsAny(safe, "()[]{}") || isReservedWord(safe) {
		return fmt.Sprintf(`"%s"`, safe)
	}
	return safe
}

// isReservedWord checks if a name is a PostgreSQL reserved word.
func isReservedWord(name string) bool {
	reserved := map[string]bool{
		"user": true, "order": true, "group": true, "table": true,
		"select": true, "from": true, "where": true, "index": true,
	}
	return reserved[strings.ToLower(name)]
}

// Ensure Connector implements connector.Connector interface
var _ connector.Connector = (*Connector)(nil)
