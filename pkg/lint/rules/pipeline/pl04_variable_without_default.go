package pipeline

import (
	"github.com/leapstack-labs/leapflow/pkg/cond"
	"github.com/leapstack-labs/leapflow/pkg/lint"
	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

func init() {
	lint.Register(VariableWithoutDefault)
}

// VariableWithoutDefault reports variables that carry no default
// anywhere they are used. Planning fails for such a variable unless a
// binding is supplied, so each one is an implicit required parameter of
// the pipeline. Each variable is reported once, at its first use.
var VariableWithoutDefault = lint.RuleDef{
	ID:          "PL04",
	Name:        "pipeline.variable_without_default",
	Group:       "pipeline",
	Description: "Variable has no default and must be bound at plan time.",
	Severity:    lint.SeverityInfo,
	Check:       checkVariableWithoutDefault,
}

func checkVariableWithoutDefault(file *parser.File) []lint.Diagnostic {
	seen := make(map[string]bool)
	var diagnostics []lint.Diagnostic

	report := func(expr subst.Expr) {
		if expr.HasDefault || seen[expr.Name] {
			return
		}
		seen[expr.Name] = true
		diagnostics = append(diagnostics, lint.Diagnostic{
			RuleID:   "PL04",
			Severity: lint.SeverityInfo,
			Message:  "variable '${" + expr.Name + "}' has no default and must be bound at plan time",
			Pos:      expr.Span.Start,
			EndPos:   expr.Span.End,
		})
	}

	scan := func(template string, base token.Position) {
		// Templates were validated at parse time, so Scan cannot fail here.
		exprs, err := subst.Scan(template, base)
		if err != nil {
			return
		}
		for _, expr := range exprs {
			report(expr)
		}
	}

	var walkValue func(v value.Value, base token.Position)
	walkValue = func(v value.Value, base token.Position) {
		switch val := v.(type) {
		case value.String:
			scan(string(val), base)
		case *value.Object:
			for _, field := range val.Fields {
				walkValue(field.Value, base)
			}
		case value.Array:
			for _, item := range val {
				walkValue(item, base)
			}
		}
	}

	var walk func(stmts []parser.Statement)
	walk = func(stmts []parser.Statement) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *parser.SourceDecl:
				if s.Params != nil {
					walkValue(s.Params, s.ParamsSpan.Start)
				}
			case *parser.CreateTableStmt:
				for _, expr := range s.Body.Exprs {
					report(expr)
				}
			case *parser.ExportStmt:
				for _, expr := range s.Body.Exprs {
					report(expr)
				}
				scan(s.Destination, s.DestSpan.Start)
				if s.Options != nil {
					walkValue(s.Options, s.OptionsSpan.Start)
				}
			case *parser.ConditionalBlock:
				for _, branch := range s.Branches {
					if branch.Condition != nil {
						walkCondition(branch.Condition, scan)
					}
					walk(branch.Body)
				}
			}
		}
	}
	walk(file.Statements)
	return diagnostics
}

// walkCondition scans every operand of a condition for variable
// expressions.
func walkCondition(expr cond.Expr, scan func(string, token.Position)) {
	switch e := expr.(type) {
	case *cond.Comparison:
		scan(e.Left.Text, e.Left.Span.Start)
		scan(e.Right.Text, e.Right.Span.Start)
	case *cond.Truth:
		scan(e.Operand.Text, e.Operand.Span.Start)
	case *cond.Not:
		walkCondition(e.Expr, scan)
	case *cond.And:
		walkCondition(e.Left, scan)
		walkCondition(e.Right, scan)
	case *cond.Or:
		walkCondition(e.Left, scan)
		walkCondition(e.Right, scan)
	}
}
