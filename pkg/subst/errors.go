package subst

import (
	"fmt"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// UnresolvedVariableError reports a variable reference with no binding
// and no default. It is never downgraded to an empty substitution: a
// silently dropped variable would corrupt the generated SQL in ways the
// executor cannot detect.
type UnresolvedVariableError struct {
	Name string
	Span token.Span
}

func (e *UnresolvedVariableError) Error() string {
	pos := e.Span.Start
	return fmt.Sprintf("unresolved variable at line %d, column %d: ${%s} has no value and no default", pos.Line, pos.Column, e.Name)
}

// Position returns the start of the variable expression.
func (e *UnresolvedVariableError) Position() token.Position { return e.Span.Start }

// ScanError reports a malformed variable expression.
type ScanError struct {
	Pos     token.Position
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("invalid variable expression at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Position returns the source position of the error.
func (e *ScanError) Position() token.Position { return e.Pos }
