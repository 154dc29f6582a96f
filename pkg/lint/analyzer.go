package lint

import (
	"sort"

	"github.com/leapstack-labs/leapflow/pkg/parser"
)

// Analyzer runs lint rules against a parsed pipeline file.
type Analyzer struct {
	config *Config
}

// NewAnalyzer creates a new analyzer with optional configuration.
func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = NewConfig()
	}
	return &Analyzer{config: config}
}

// Analyze runs all enabled rules against the file. Diagnostics come
// back ordered by position, then rule ID, so output is stable across
// runs.
func (a *Analyzer) Analyze(file *parser.File) []Diagnostic {
	if file == nil {
		return nil
	}

	var diagnostics []Diagnostic
	for _, rule := range All() {
		if a.config.IsDisabled(rule.ID) {
			continue
		}
		severity := a.config.GetSeverity(rule.ID, rule.Severity)
		for _, d := range rule.Check(file) {
			d.Severity = severity
			diagnostics = append(diagnostics, d)
		}
	}

	sort.SliceStable(diagnostics, func(i, j int) bool {
		if diagnostics[i].Pos.Line != diagnostics[j].Pos.Line {
			return diagnostics[i].Pos.Line < diagnostics[j].Pos.Line
		}
		if diagnostics[i].Pos.Column != diagnostics[j].Pos.Column {
			return diagnostics[i].Pos.Column < diagnostics[j].Pos.Column
		}
		return diagnostics[i].RuleID < diagnostics[j].RuleID
	})
	return diagnostics
}
