package duckdb

import (
	"fmt"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Params holds DuckDB connector configuration.
// Decoded from connector.Config.Params using mapstructure.
type Params struct {
	// Path to the database file; empty or ":memory:" for in-memory.
	Path string `mapstructure:"path"`

	// Extensions to install and load (e.g., "httpfs", "json")
	Extensions []string `mapstructure:"extensions"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// FileParams holds the params of a file-based source (csv, parquet,
// json).
type FileParams struct {
	// Path of the file or glob to read.
	Path string `mapstructure:"path"`

	// Header indicates the first CSV row holds column names.
	Header *bool `mapstructure:"header"`

	// Delimiter overrides CSV field separation.
	Delimiter string `mapstructure:"delimiter"`
}

// PostgresSourceParams holds the params of a postgres-typed source,
// read through DuckDB's postgres extension.
type PostgresSourceParams struct {
	// DSN of the upstream database.
	DSN string `mapstructure:"dsn"`

	// Table to read; defaults to the load target's name.
	Table string `mapstructure:"table"`

	// Schema the table lives in.
	Schema string `mapstructure:"schema"`
}

func parseParams(obj *value.Object) (*Params, error) {
	p := &Params{}
	if err := connector.DecodeParams(obj, p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseFileParams(obj *value.Object) (*FileParams, error) {
	p := &FileParams{}
	if err := connector.DecodeParams(obj, p); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, fmt.Errorf("source params require a path")
	}
	return p, nil
}

func parsePostgresSourceParams(obj *value.Object, targetTable string) (*PostgresSourceParams, error) {
	p := &PostgresSourceParams{}
	if err := connector.DecodeParams(obj, p); err != nil {
		return nil, err
	}
	if p.DSN == "" {
		return nil, fmt.Errorf("postgres source params require a dsn")
	}
	if p.Table == "" {
		p.Table = targetTable
	}
	if p.Schema == "" {
		p.Schema = "public"
	}
	return p, nil
}
