package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Position returns the source position of the error.
func (e *LexError) Position() token.Position { return e.Pos }

// NewLexError creates a new lexer error.
func NewLexError(pos token.Position, msg string) *LexError {
	return &LexError{Pos: pos, Message: msg}
}

// NewLexErrorf creates a new lexer error with formatting.
func NewLexErrorf(pos token.Position, format string, args ...any) *LexError {
	return &LexError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// ParseError represents a grammar violation with the token that was found
// and what the grammar expected in its place.
type ParseError struct {
	Span     token.Span
	Expected string
	Found    string
	Message  string // set for errors that are not a plain expected/found mismatch
}

func (e *ParseError) Error() string {
	pos := e.Span.Start
	if e.Message != "" {
		return fmt.Sprintf("parse error at line %d, column %d: %s", pos.Line, pos.Column, e.Message)
	}
	return fmt.Sprintf("parse error at line %d, column %d: "+ErrUnexpectedToken, pos.Line, pos.Column, e.Found, e.Expected)
}

// Position returns the start of the offending span.
func (e *ParseError) Position() token.Position { return e.Span.Start }

// NewParseError creates an expected/found mismatch error.
func NewParseError(span token.Span, expected, found string) *ParseError {
	return &ParseError{Span: span, Expected: expected, Found: found}
}

// NewParseErrorf creates a parse error with a custom message.
func NewParseErrorf(span token.Span, format string, args ...any) *ParseError {
	return &ParseError{Span: span, Message: fmt.Sprintf(format, args...)}
}

// Common error messages
const (
	ErrUnexpectedToken      = "unexpected token %s, expected %s"
	ErrUnterminatedString   = "unterminated string literal"
	ErrUnterminatedBlock    = "unterminated params block"
	ErrUnterminatedVariable = "unterminated variable expression"
	ErrUnterminatedComment  = "unterminated block comment"
	ErrInvalidCharacter     = "invalid character %q"
	ErrEmptySQLBody         = "empty SQL body"
	ErrNestingTooDeep       = "conditional nesting exceeds %d levels"
	ErrDuplicateElse        = "duplicate ELSE branch"
	ErrElseNotLast          = "ELSEIF after ELSE branch"
)
