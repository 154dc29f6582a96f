// Package plan compiles a parsed pipeline file into an ordered,
// dependency-resolved execution plan.
//
// Planning runs in strictly separate passes: conditional branches are
// flattened first (one selected branch per block), every surviving
// statement becomes a step with a stable identity and a fully
// variable-resolved payload, dependency edges are derived from table
// references, and the result is ordered topologically with ties broken
// by declaration order. A failure in any pass aborts planning; a
// partial plan is never returned.
package plan

import (
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// StepType identifies what a step does.
type StepType string

// Step types, in the order they typically appear in a pipeline.
const (
	StepSource    StepType = "source"
	StepLoad      StepType = "load"
	StepTransform StepType = "transform"
	StepExport    StepType = "export"
)

// Step is one executable unit of a plan. ID is derived from the step's
// kind and declared name, never from its position, so the same logical
// step keeps its identity across re-plans with different variable
// bindings. DependsOn only names steps that appear earlier in the plan.
type Step struct {
	ID        string     `json:"id"`
	Type      StepType   `json:"type"`
	Name      string     `json:"name"`
	DependsOn []string   `json:"depends_on,omitempty"`
	Payload   Payload    `json:"payload"`
	Span      token.Span `json:"-"`
}

// Payload carries the type-specific, fully resolved inputs of a step.
type Payload interface {
	payloadNode()
}

// SourcePayload holds a source declaration's resolved connector
// parameters.
type SourcePayload struct {
	ConnectorType string        `json:"connector_type"`
	Params        *value.Object `json:"params,omitempty"`
}

// LoadPayload identifies what a load step reads and writes.
type LoadPayload struct {
	TargetTable string `json:"target_table"`
	SourceName  string `json:"source_name"`
	Mode        string `json:"mode,omitempty"`
}

// TransformPayload holds the resolved SQL of a CREATE TABLE step.
type TransformPayload struct {
	Table string `json:"table"`
	SQL   string `json:"sql"`
}

// ExportPayload holds the resolved SQL, destination and connector
// options of an export step.
type ExportPayload struct {
	SQL           string        `json:"sql"`
	Destination   string        `json:"destination"`
	ConnectorType string        `json:"connector_type"`
	Options       *value.Object `json:"options,omitempty"`
}

func (*SourcePayload) payloadNode()    {}
func (*LoadPayload) payloadNode()      {}
func (*TransformPayload) payloadNode() {}
func (*ExportPayload) payloadNode()    {}

// Plan is the ordered sequence of resolved steps. Every step appears
// strictly after all steps it depends on.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Step returns the step with the given ID.
func (p *Plan) Step(id string) (*Step, bool) {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i], true
		}
	}
	return nil, false
}

// IDs returns the step IDs in plan order.
func (p *Plan) IDs() []string {
	ids := make([]string, len(p.Steps))
	for i := range p.Steps {
		ids[i] = p.Steps[i].ID
	}
	return ids
}
