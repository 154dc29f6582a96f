package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/pkg/connector"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run ad-hoc SQL against the active connector",
		Long: `Execute SQL against the active profile's connector and print the
results. The query comes from the argument, --input, or piped stdin.
With no input on a terminal, starts an interactive REPL with table name
completion and history.`,
		Example: `  # One-shot query
  leapflow query "SELECT * FROM daily_totals LIMIT 10"

  # From a file, as CSV
  leapflow query --input report.sql --format csv

  # List warehouse tables
  leapflow query tables

  # Interactive mode
  leapflow query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cc := NewCommandContext(cmd)

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		// No input on a terminal: interactive mode.
		conn, name, err := openConnector(cmd, cc)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()
		return runQueryREPL(cmd, cc, conn, name, opts)
	}

	if strings.TrimSpace(sqlQuery) == "" {
		return fmt.Errorf("no SQL to execute")
	}

	conn, _, err := openConnector(cmd, cc)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.Query(cmd.Context(), sqlQuery)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return renderResults(cmd.OutOrStdout(), rows, opts.Format)
}

// openConnector connects to the connector the active profile selects.
func openConnector(cmd *cobra.Command, cc *CommandContext) (connector.Connector, string, error) {
	name, ccfg, err := resolveConnectorConfig(cc.Cfg, "")
	if err != nil {
		return nil, "", err
	}
	conn, err := connector.New(ccfg, cc.Logger)
	if err != nil {
		return nil, "", err
	}
	if err := conn.Connect(cmd.Context(), ccfg); err != nil {
		return nil, "", fmt.Errorf("failed to connect %q: %w", name, err)
	}
	return conn, name, nil
}

// newQueryTablesCommand creates the tables subcommand.
func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and views in the warehouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			conn, _, err := openConnector(cmd, cc)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			return listTables(cmd.Context(), cmd.OutOrStdout(), conn, opts.Format)
		},
	}
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show columns of a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			conn, _, err := openConnector(cmd, cc)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			return showSchema(cmd.Context(), cmd.OutOrStdout(), conn, args[0], opts.Format)
		},
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
