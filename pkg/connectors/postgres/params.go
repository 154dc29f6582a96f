package postgres

import (
	"fmt"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Params holds PostgreSQL connector configuration.
// Decoded from connector.Config.Params using mapstructure.
type Params struct {
	// DSN, when set, is used verbatim and the discrete fields below
	// are ignored.
	DSN string `mapstructure:"dsn"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

func parseParams(obj *value.Object) (*Params, error) {
	p := &Params{}
	if err := connector.DecodeParams(obj, p); err != nil {
		return nil, err
	}
	if p.DSN == "" && p.Database == "" {
		return nil, fmt.Errorf("postgres params require a dsn or a database name")
	}
	return p, nil
}

// buildDSN constructs a key=value connection string from the discrete
// fields. An explicit DSN wins.
func buildDSN(p *Params) string {
	if p.DSN != "" {
		return p.DSN
	}

	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, p.Database, sslmode)
	if p.User != "" {
		dsn += fmt.Sprintf(" user=%s", p.User)
	}
	if p.Password != "" {
		dsn += fmt.Sprintf(" password=%s", p.Password)
	}
	return dsn
}

// FileParams holds the params of a csv source ingested over COPY.
type FileParams struct {
	// Path of the file to read.
	Path string `mapstructure:"path"`
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
