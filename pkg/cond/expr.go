// Package cond parses and evaluates the boolean conditions that select
// IF / ELSEIF branches. The grammar is closed: comparisons over scalar
// operands combined with NOT, AND, OR and parentheses. Operands are
// substituted in plain context before every comparison, so evaluating a
// condition never runs anything beyond this package.
package cond

import "github.com/leapstack-labs/leapflow/pkg/token"

// Expr is a node of a condition.
type Expr interface {
	exprNode()
	GetSpan() token.Span
}

// NodeInfo provides the source span common to all condition nodes.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span { return n.Span }

// Operand is one scalar comparison operand as written in the source.
// Text is the plain-context template substituted at evaluation time.
type Operand struct {
	Text string
	Span token.Span
}

// Comparison applies one comparison operator to two substituted
// operands.
type Comparison struct {
	NodeInfo
	Left  Operand
	Op    token.TokenType // EQ, NE, LT, LE, GT, GE
	Right Operand
}

func (*Comparison) exprNode() {}

// Truth treats a single operand as a boolean atom. After substitution
// the text must be exactly "true" or "false".
type Truth struct {
	NodeInfo
	Operand Operand
}

func (*Truth) exprNode() {}

// Not inverts its operand.
type Not struct {
	NodeInfo
	Expr Expr
}

func (*Not) exprNode() {}

// And is true when both sides are; the right side is not evaluated
// when the left is false.
type And struct {
	NodeInfo
	Left  Expr
	Right Expr
}

func (*And) exprNode() {}

// Or is true when either side is; the right side is not evaluated when
// the left is true.
type Or struct {
	NodeInfo
	Left  Expr
	Right Expr
}

func (*Or) exprNode() {}
