package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/lint"
	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/token"
)

func init() {
	lint.Register(DuplicateTable)
}

// DuplicateTable warns when two statements that can appear in the same
// plan produce the same table. Sibling branches of one conditional are
// mutually exclusive and never co-exist, so producing the same table in
// an IF and its ELSE is fine; producing it twice in the same branch, or
// once inside a branch and once outside, is not.
var DuplicateTable = lint.RuleDef{
	ID:          "PL03",
	Name:        "pipeline.duplicate_table",
	Group:       "pipeline",
	Description: "Table is produced by more than one statement in the same plan.",
	Severity:    lint.SeverityWarning,
	Check:       checkDuplicateTable,
}

// production records where a table is produced, as written.
type production struct {
	table string
	pos   token.Position
}

func checkDuplicateTable(file *parser.File) []lint.Diagnostic {
	_, diagnostics := checkProductions(file.Statements)
	return diagnostics
}

// checkProductions returns one representative production per table for
// the given statement list, flagging duplicates among statements that
// co-exist. Conditional branches are alternatives: their productions
// merge into a single representative each before joining the enclosing
// scope.
func checkProductions(stmts []parser.Statement) (map[string]production, []lint.Diagnostic) {
	produced := make(map[string]production)
	var diagnostics []lint.Diagnostic

	add := func(table string, pos token.Position) {
		key := strings.ToLower(table)
		if first, ok := produced[key]; ok {
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:   "PL03",
				Severity: lint.SeverityWarning,
				Message:  fmt.Sprintf("table '%s' is produced more than once (first produced at line %d)", table, first.pos.Line),
				Pos:      pos,
			})
			return
		}
		produced[key] = production{table: table, pos: pos}
	}

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.LoadStmt:
			add(s.TargetTable, s.Span.Start)
		case *parser.CreateTableStmt:
			add(s.Name, s.Span.Start)
		case *parser.ConditionalBlock:
			alternatives := make(map[string]bool)
			var merged []production
			for _, branch := range s.Branches {
				branchProd, branchDiags := checkProductions(branch.Body)
				diagnostics = append(diagnostics, branchDiags...)
				for key, p := range branchProd {
					if !alternatives[key] {
						alternatives[key] = true
						merged = append(merged, p)
					}
				}
			}
			sortProductions(merged)
			for _, p := range merged {
				add(p.table, p.pos)
			}
		}
	}
	return produced, diagnostics
}

// sortProductions orders by source position so diagnostics are stable.
func sortProductions(prods []production) {
	sort.Slice(prods, func(i, j int) bool {
		if prods[i].pos.Line != prods[j].pos.Line {
			return prods[i].pos.Line < prods[j].pos.Line
		}
		return prods[i].pos.Column < prods[j].pos.Column
	})
}
