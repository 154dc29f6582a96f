package plan

import (
	"fmt"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// ErrorKind classifies plan construction failures.
type ErrorKind int

// The closed set of plan error kinds.
const (
	CyclicDependency ErrorKind = iota
	DuplicateStepName
	DanglingReference
)

func (k ErrorKind) String() string {
	switch k {
	case CyclicDependency:
		return "cyclic dependency"
	case DuplicateStepName:
		return "duplicate step name"
	case DanglingReference:
		return "dangling reference"
	default:
		return "unknown"
	}
}

// PlanError reports a structural defect found while building the plan.
// The span points at the statement that completes the defect: the
// second of two duplicate declarations, the load naming a missing
// source, or the first step along a dependency cycle.
type PlanError struct {
	Kind   ErrorKind
	Detail string
	Span   token.Span
}

func (e *PlanError) Error() string {
	pos := e.Span.Start
	return fmt.Sprintf("plan error at line %d, column %d: %s: %s", pos.Line, pos.Column, e.Kind, e.Detail)
}

// Position returns the start of the offending span.
func (e *PlanError) Position() token.Position { return e.Span.Start }

// NewPlanErrorf creates a plan error with a formatted detail message.
func NewPlanErrorf(kind ErrorKind, span token.Span, format string, args ...any) *PlanError {
	return &PlanError{Kind: kind, Span: span, Detail: fmt.Sprintf(format, args...)}
}
