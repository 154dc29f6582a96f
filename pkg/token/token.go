// Package token defines the token types for the flow pipeline language.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT    // identifier
	NUMBER   // 123, 45.67, 1e10
	STRING   // 'hello' or "hello"
	VARIABLE // ${name} or ${name|default}
	FRAGMENT // opaque SQL statement body
	BLOCK    // balanced { ... } params/options block

	// Operators and punctuation
	EQ      // =
	NE      // != or <>
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=
	DOT     // .
	COMMA   // ,
	LPAREN  // (
	RPAREN  // )
	SEMI    // ;
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	DPIPE   // ||
	SYMBOL  // any other punctuation inside SQL fragments

	// Keywords (alphabetical)
	AND
	AS
	CREATE
	ELSE
	ELSEIF
	ENDIF
	EXPORT
	FALSE
	FROM
	IF
	LOAD
	MODE
	NOT
	NULL
	OPTIONS
	OR
	PARAMS
	SOURCE
	TABLE
	THEN
	TO
	TRUE
	TYPE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	STRING:   "STRING",
	VARIABLE: "VARIABLE",
	FRAGMENT: "FRAGMENT",
	BLOCK:    "BLOCK",

	EQ:      "=",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	DOT:     ".",
	COMMA:   ",",
	LPAREN:  "(",
	RPAREN:  ")",
	SEMI:    ";",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	DPIPE:   "||",
	SYMBOL:  "SYMBOL",

	AND:     "AND",
	AS:      "AS",
	CREATE:  "CREATE",
	ELSE:    "ELSE",
	ELSEIF:  "ELSEIF",
	ENDIF:   "ENDIF",
	EXPORT:  "EXPORT",
	FALSE:   "FALSE",
	FROM:    "FROM",
	IF:      "IF",
	LOAD:    "LOAD",
	MODE:    "MODE",
	NOT:     "NOT",
	NULL:    "NULL",
	OPTIONS: "OPTIONS",
	OR:      "OR",
	PARAMS:  "PARAMS",
	SOURCE:  "SOURCE",
	TABLE:   "TABLE",
	THEN:    "THEN",
	TO:      "TO",
	TRUE:    "TRUE",
	TYPE:    "TYPE",
}

// keywords maps lowercase keyword strings to their token types.
// Keyword matching is case-insensitive.
var keywords = map[string]TokenType{
	"and":     AND,
	"as":      AS,
	"create":  CREATE,
	"else":    ELSE,
	"elseif":  ELSEIF,
	"endif":   ENDIF,
	"export":  EXPORT,
	"false":   FALSE,
	"from":    FROM,
	"if":      IF,
	"load":    LOAD,
	"mode":    MODE,
	"not":     NOT,
	"null":    NULL,
	"options": OPTIONS,
	"or":      OR,
	"params":  PARAMS,
	"source":  SOURCE,
	"table":   TABLE,
	"then":    THEN,
	"to":      TO,
	"true":    TRUE,
	"type":    TYPE,
}

// LookupIdent returns the token type for the given identifier.
// If the identifier is a keyword (matched case-insensitively by the
// caller lowering the input), the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AND && t <= TYPE
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= EQ && t <= SYMBOL
}

// IsComparison returns true for the comparison operator token types
// accepted inside conditional expressions.
func IsComparison(t TokenType) bool {
	switch t {
	case EQ, NE, LT, GT, LE, GE:
		return true
	default:
		return false
	}
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position // start of the token
	End     Position // one past the last byte of the token
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}
