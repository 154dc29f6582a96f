package pipeline

import (
	"github.com/leapstack-labs/leapflow/pkg/lint"
	"github.com/leapstack-labs/leapflow/pkg/parser"
)

func init() {
	lint.Register(ConditionalWithoutElse)
}

// ConditionalWithoutElse warns about IF blocks with no ELSE branch.
// When no branch condition matches, such a block contributes zero steps
// to the plan, which is valid but usually means a case was forgotten.
var ConditionalWithoutElse = lint.RuleDef{
	ID:          "PL01",
	Name:        "pipeline.conditional_without_else",
	Group:       "pipeline",
	Description: "Conditional block has no ELSE branch and may contribute no steps.",
	Severity:    lint.SeverityWarning,
	Check:       checkConditionalWithoutElse,
}

func checkConditionalWithoutElse(file *parser.File) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic
	walkConditionals(file.Statements, func(block *parser.ConditionalBlock) {
		last := block.Branches[len(block.Branches)-1]
		if last.Condition != nil {
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:   "PL01",
				Severity: lint.SeverityWarning,
				Message:  "conditional block has no ELSE branch; when no condition matches it contributes no steps",
				Pos:      block.Span.Start,
				EndPos:   block.Span.End,
			})
		}
	})
	return diagnostics
}

// walkConditionals visits every conditional block in the file,
// including ones nested inside branches.
func walkConditionals(stmts []parser.Statement, visit func(*parser.ConditionalBlock)) {
	for _, stmt := range stmts {
		block, ok := stmt.(*parser.ConditionalBlock)
		if !ok {
			continue
		}
		visit(block)
		for _, branch := range block.Branches {
			walkConditionals(branch.Body, visit)
		}
	}
}
