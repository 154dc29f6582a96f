package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/value"
)

// quoteLiteral single-quotes a string for embedding in SQL, doubling
// embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// readRelation builds the table function call that reads a file-based
// source.
func readRelation(sourceType string, p *FileParams) (string, error) {
	path := quoteLiteral(p.Path)
	switch strings.ToLower(sourceType) {
	case "csv":
		var opts []string
		if p.Header != nil {
			opts = append(opts, fmt.Sprintf("header = %t", *p.Header))
		}
		if p.Delimiter != "" {
			opts = append(opts, "delim = "+quoteLiteral(p.Delimiter))
		}
		if len(opts) == 0 {
			return fmt.Sprintf("read_csv(%s)", path), nil
		}
		return fmt.Sprintf("read_csv(%s, %s)", path, strings.Join(opts, ", ")), nil
	case "parquet":
		return fmt.Sprintf("read_parquet(%s)", path), nil
	case "json":
		return fmt.Sprintf("read_json(%s)", path), nil
	default:
		return "", fmt.Errorf("source type %q is not a file format", sourceType)
	}
}

// materializeSQL writes a relation into a table under the given mode.
func materializeSQL(table, mode, relation string) string {
	if mode == "append" {
		return fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", table, relation)
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", table, relation)
}

// exportSQL builds a COPY ... TO statement for the given format.
// Recognized options: header (bool, csv only), delimiter (string, csv
// only), compression (string, parquet only). Unknown options are
// rejected so a typo fails loudly instead of silently exporting with
// defaults.
func exportSQL(query, destination, format string, options *value.Object) (string, error) {
	format = strings.ToLower(format)
	opts := []string{"FORMAT " + format}

	switch format {
	case "csv":
		header := true
		if options != nil {
			if v, ok := options.Get("header"); ok {
				b, ok := v.(value.Bool)
				if !ok {
					return "", fmt.Errorf("export option header must be a boolean")
				}
				header = bool(b)
			}
			if v, ok := options.Get("delimiter"); ok {
				s, ok := v.(value.String)
				if !ok {
					return "", fmt.Errorf("export option delimiter must be a string")
				}
				opts = append(opts, "DELIMITER "+quoteLiteral(string(s)))
			}
		}
		opts = append(opts, fmt.Sprintf("HEADER %t", header))
		if err := rejectUnknown(options, "header", "delimiter"); err != nil {
			return "", err
		}
	case "parquet":
		if options != nil {
			if v, ok := options.Get("compression"); ok {
				s, ok := v.(value.String)
				if !ok {
					return "", fmt.Errorf("export option compression must be a string")
				}
				opts = append(opts, "COMPRESSION "+quoteLiteral(string(s)))
			}
		}
		if err := rejectUnknown(options, "compression"); err != nil {
			return "", err
		}
	case "json":
		opts = append(opts, "ARRAY true")
		if err := rejectUnknown(options); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}

	return fmt.Sprintf("COPY (%s) TO %s (%s)", query, quoteLiteral(destination), strings.Join(opts, ", ")), nil
}

func rejectUnknown(options *value.Object, known ...string) error {
	if options == nil {
		return nil
	}
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	var unknown []string
	for _, key := range options.Keys() {
		if !allowed[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown export options: %s", strings.Join(unknown, ", "))
	}
	return nil
}
