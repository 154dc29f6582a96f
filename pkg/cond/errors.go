package cond

import (
	"fmt"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// Error messages for condition parsing and evaluation.
const (
	ErrEmptyCondition    = "empty condition"
	ErrExpectedOperand   = "expected operand, found %s"
	ErrExpectedRParen    = "expected ')', found %s"
	ErrExpectedNumber    = "expected number after '-', found %s"
	ErrTrailingTokens    = "unexpected %s after condition"
	ErrNonBooleanOperand = "non-boolean operand %q, expected true or false"
)

// EvalError reports a condition that cannot be parsed or evaluated.
type EvalError struct {
	Span    token.Span
	Message string
}

func (e *EvalError) Error() string {
	pos := e.Span.Start
	return fmt.Sprintf("condition error at line %d, column %d: %s", pos.Line, pos.Column, e.Message)
}

// Position returns the start of the offending construct.
func (e *EvalError) Position() token.Position { return e.Span.Start }

// NewEvalError creates an EvalError at the given span.
func NewEvalError(span token.Span, message string) *EvalError {
	return &EvalError{Span: span, Message: message}
}

// NewEvalErrorf creates an EvalError with a formatted message.
func NewEvalErrorf(span token.Span, format string, args ...any) *EvalError {
	return &EvalError{Span: span, Message: fmt.Sprintf(format, args...)}
}
