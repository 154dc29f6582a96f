package pipeline

import (
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/lint"
	"github.com/leapstack-labs/leapflow/pkg/parser"
)

func init() {
	lint.Register(UnloadedSource)
}

// UnloadedSource warns about sources that no LOAD statement reads.
// A declared-but-unloaded source is dead configuration.
var UnloadedSource = lint.RuleDef{
	ID:          "PL02",
	Name:        "pipeline.unloaded_source",
	Group:       "pipeline",
	Description: "Source is declared but never loaded.",
	Severity:    lint.SeverityWarning,
	Check:       checkUnloadedSource,
}

func checkUnloadedSource(file *parser.File) []lint.Diagnostic {
	var sources []*parser.SourceDecl
	loaded := make(map[string]bool)

	var walk func(stmts []parser.Statement)
	walk = func(stmts []parser.Statement) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *parser.SourceDecl:
				sources = append(sources, s)
			case *parser.LoadStmt:
				loaded[strings.ToLower(s.SourceName)] = true
			case *parser.ConditionalBlock:
				for _, branch := range s.Branches {
					walk(branch.Body)
				}
			}
		}
	}
	walk(file.Statements)

	var diagnostics []lint.Diagnostic
	for _, src := range sources {
		if !loaded[strings.ToLower(src.Name)] {
			diagnostics = append(diagnostics, lint.Diagnostic{
				RuleID:   "PL02",
				Severity: lint.SeverityWarning,
				Message:  "source '" + src.Name + "' is declared but never loaded",
				Pos:      src.Span.Start,
				EndPos:   src.Span.End,
			})
		}
	}
	return diagnostics
}
