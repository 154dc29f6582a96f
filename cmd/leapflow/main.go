// Package main is the Leapflow CLI entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapflow/internal/cli"

	// Connector implementations register themselves on import.
	_ "github.com/leapstack-labs/leapflow/pkg/connectors/duckdb"
	_ "github.com/leapstack-labs/leapflow/pkg/connectors/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
