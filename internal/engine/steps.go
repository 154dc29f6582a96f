package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/plan"
)

// executeStep runs a single plan step against the connector.
func (e *Engine) executeStep(ctx context.Context, conn connector.Connector, p *plan.Plan, step *plan.Step) error {
	switch payload := step.Payload.(type) {
	case *plan.SourcePayload:
		return validateSource(step.Name, payload)
	case *plan.LoadPayload:
		return executeLoad(ctx, conn, p, payload)
	case *plan.TransformPayload:
		return conn.Exec(ctx, transformSQL(payload.Table, payload.SQL))
	case *plan.ExportPayload:
		return conn.Export(ctx, payload.SQL, payload.Destination, payload.ConnectorType, payload.Options)
	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}
}

// validateSource checks a source declaration without reading from it:
// the type must be a file format or a registered connector.
func validateSource(name string, payload *plan.SourcePayload) error {
	t := payload.ConnectorType
	if connector.IsFileFormat(t) || connector.IsRegistered(strings.ToLower(t)) {
		return nil
	}
	return fmt.Errorf("source %q has unknown type %q", name, t)
}

// executeLoad ingests a declared source into its target table.
func executeLoad(ctx context.Context, conn connector.Connector, p *plan.Plan, payload *plan.LoadPayload) error {
	src, ok := p.Step("source:" + strings.ToLower(payload.SourceName))
	if !ok {
		return fmt.Errorf("source %q not found in plan", payload.SourceName)
	}
	sp, ok := src.Payload.(*plan.SourcePayload)
	if !ok {
		return fmt.Errorf("step %s is not a source", src.ID)
	}
	return conn.Ingest(ctx, payload.TargetTable, payload.Mode, connector.SourceSpec{
		Type:   sp.ConnectorType,
		Params: sp.Params,
	})
}

// transformSQL materializes a transform as a table.
func transformSQL(table, query string) string {
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", table, query)
}

// describeStep renders the action a step performs, for dry runs and
// run output.
func describeStep(step *plan.Step) string {
	switch payload := step.Payload.(type) {
	case *plan.SourcePayload:
		return fmt.Sprintf("validate source %s (%s)", step.Name, payload.ConnectorType)
	case *plan.LoadPayload:
		mode, err := connector.NormalizeMode(payload.Mode)
		if err != nil {
			mode = payload.Mode
		}
		return fmt.Sprintf("load %s from %s (%s)", payload.TargetTable, payload.SourceName, mode)
	case *plan.TransformPayload:
		return transformSQL(payload.Table, payload.SQL)
	case *plan.ExportPayload:
		return fmt.Sprintf("export to %s (%s)", payload.Destination, payload.ConnectorType)
	default:
		return string(step.Type)
	}
}
