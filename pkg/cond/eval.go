package cond

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
)

// Evaluate decides a condition against the variable mapping. Every
// operand is substituted in plain context first; AND and OR
// short-circuit left to right. Operands that both look numeric compare
// numerically, anything else compares lexically.
func Evaluate(expr Expr, engine *subst.Engine, vars subst.Vars) (bool, error) {
	switch e := expr.(type) {
	case *Comparison:
		left, err := resolveOperand(e.Left, engine, vars)
		if err != nil {
			return false, err
		}
		right, err := resolveOperand(e.Right, engine, vars)
		if err != nil {
			return false, err
		}
		return compare(e.Op, left, right), nil

	case *Truth:
		s, err := resolveOperand(e.Operand, engine, vars)
		if err != nil {
			return false, err
		}
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, NewEvalErrorf(e.Operand.Span, ErrNonBooleanOperand, s)

	case *Not:
		v, err := Evaluate(e.Expr, engine, vars)
		if err != nil {
			return false, err
		}
		return !v, nil

	case *And:
		left, err := Evaluate(e.Left, engine, vars)
		if err != nil || !left {
			return false, err
		}
		return Evaluate(e.Right, engine, vars)

	case *Or:
		left, err := Evaluate(e.Left, engine, vars)
		if err != nil || left {
			return left, err
		}
		return Evaluate(e.Right, engine, vars)

	default:
		return false, &EvalError{Message: ErrEmptyCondition}
	}
}

func resolveOperand(op Operand, engine *subst.Engine, vars subst.Vars) (string, error) {
	return engine.ResolveAt(op.Text, op.Span.Start, vars, subst.ContextPlain)
}

func compare(op token.TokenType, left, right string) bool {
	lf, lerr := strconv.ParseFloat(left, 64)
	rf, rerr := strconv.ParseFloat(right, 64)
	if lerr == nil && rerr == nil {
		switch op {
		case token.EQ:
			return lf == rf
		case token.NE:
			return lf != rf
		case token.LT:
			return lf < rf
		case token.LE:
			return lf <= rf
		case token.GT:
			return lf > rf
		case token.GE:
			return lf >= rf
		}
		return false
	}

	c := strings.Compare(left, right)
	switch op {
	case token.EQ:
		return c == 0
	case token.NE:
		return c != 0
	case token.LT:
		return c < 0
	case token.LE:
		return c <= 0
	case token.GT:
		return c > 0
	case token.GE:
		return c >= 0
	}
	return false
}
