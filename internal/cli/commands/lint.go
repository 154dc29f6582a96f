package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/pkg/lint"
	_ "github.com/leapstack-labs/leapflow/pkg/lint/rules" // register pipeline rules
	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/token"
)

// LintOptions holds flags for the lint command.
type LintOptions struct {
	Disable  []string // rule IDs to disable
	Severity string   // minimum severity to report
	Rules    []string // run only these rules
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}

	cmd := &cobra.Command{
		Use:   "lint <path>...",
		Short: "Run lint rules on pipeline files",
		Long: `Analyze pipeline files for constructs that compile but are likely
mistakes: sources nothing loads, tables created twice, conditionals
without an ELSE branch, variables without defaults. Directory arguments
are searched for .flow files. Files that fail to parse are reported as
errors rather than skipped.`,
		Example: `  # Lint one pipeline
  leapflow lint nightly.flow

  # Lint every pipeline in a directory
  leapflow lint ./pipelines

  # Disable specific rules
  leapflow lint nightly.flow --disable PL02,PL04

  # Only report errors and warnings
  leapflow lint nightly.flow --severity warning`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule IDs to disable")
	cmd.Flags().StringVar(&opts.Severity, "severity", "info", "Minimum severity to report: error, warning, info, hint")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules")

	return cmd
}

func runLint(cmd *cobra.Command, args []string, opts *LintOptions) error {
	cc := NewCommandContext(cmd)

	threshold, ok := lint.ParseSeverity(opts.Severity)
	if !ok {
		return fmt.Errorf("invalid severity %q (expected error, warning, info, or hint)", opts.Severity)
	}

	files, err := collectLintFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .flow files found")
	}

	analyzer := lint.NewAnalyzer(buildLintConfig(opts))

	var results []output.LintFileResult
	for _, path := range files {
		diags, err := lintFile(analyzer, path, threshold)
		if err != nil {
			return err
		}
		if len(diags) > 0 {
			results = append(results, output.LintFileResult{Path: path, Diagnostics: diags})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	if renderLintResults(cc.Renderer, results, len(files)) {
		return fmt.Errorf("lint issues found")
	}
	return nil
}

// collectLintFiles expands arguments into pipeline files, walking
// directories for .flow files.
func collectLintFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".flow" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return files, nil
}

func buildLintConfig(opts *LintOptions) *lint.Config {
	cfg := lint.NewConfig()

	for _, id := range opts.Disable {
		cfg.Disable(strings.TrimSpace(id))
	}

	// --rule keeps only the named rules.
	if len(opts.Rules) > 0 {
		keep := make(map[string]bool, len(opts.Rules))
		for _, id := range opts.Rules {
			keep[strings.TrimSpace(id)] = true
		}
		for _, rule := range lint.All() {
			if !keep[rule.ID] {
				cfg.Disable(rule.ID)
			}
		}
	}

	return cfg
}

// lintFile parses and analyzes one file. A parse failure becomes an
// error-severity diagnostic so broken files fail the lint run instead
// of silently dropping out.
func lintFile(analyzer *lint.Analyzer, path string, threshold lint.Severity) ([]output.LintDiagnostic, error) {
	src, err := loadPipeline(path)
	if err != nil {
		return nil, err
	}

	file, err := parser.Parse(src)
	if err != nil {
		var pos token.Position
		var p positioned
		if errors.As(err, &p) {
			pos = p.Position()
		}
		return []output.LintDiagnostic{{
			RuleID:   "parse",
			Severity: lint.SeverityError.String(),
			Message:  err.Error(),
			Line:     pos.Line,
			Column:   pos.Column,
		}}, nil
	}

	var diags []output.LintDiagnostic
	for _, d := range analyzer.Analyze(file) {
		if d.Severity > threshold {
			continue
		}
		diags = append(diags, output.LintDiagnostic{
			RuleID:   d.RuleID,
			Severity: d.Severity.String(),
			Message:  d.Message,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
		})
	}
	return diags, nil
}

// renderLintResults writes the findings and reports whether any exist.
func renderLintResults(r *output.Renderer, results []output.LintFileResult, filesAnalyzed int) bool {
	summary := output.LintSummary{Files: filesAnalyzed}
	for _, res := range results {
		summary.Total += len(res.Diagnostics)
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case "error":
				summary.Errors++
			case "warning":
				summary.Warnings++
			case "info":
				summary.Info++
			case "hint":
				summary.Hints++
			}
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if results == nil {
			results = []output.LintFileResult{}
		}
		_ = r.JSON(output.LintOutput{Results: results, Summary: summary})
		return summary.Total > 0
	}

	if len(results) == 0 {
		r.Success("No lint issues found")
		return false
	}

	for _, res := range results {
		r.Println(r.Styles().Bold.Render(res.Path))
		for _, d := range res.Diagnostics {
			loc := fmt.Sprintf("%d:%d", d.Line, d.Column)
			if d.Line == 0 {
				loc = "-"
			}
			r.Printf("  %s  %s  %s  %s\n",
				r.Styles().Muted.Render(fmt.Sprintf("%-5s", loc)),
				severityStyle(r, d.Severity),
				r.Styles().Bold.Render(d.RuleID),
				d.Message,
			)
		}
		r.Println()
	}

	parts := []string{fmt.Sprintf("%d issues", summary.Total)}
	if summary.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", summary.Errors))
	}
	if summary.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", summary.Warnings))
	}
	if summary.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", summary.Info))
	}
	if summary.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", summary.Hints))
	}
	r.Printf("Summary: %s in %d files\n", strings.Join(parts, ", "), summary.Files)

	return true
}

func severityStyle(r *output.Renderer, severity string) string {
	switch severity {
	case "error":
		return r.Styles().Error.Render("error  ")
	case "warning":
		return r.Styles().Warning.Render("warning")
	case "info":
		return r.Styles().Info.Render("info   ")
	case "hint":
		return r.Styles().Muted.Render("hint   ")
	default:
		return r.Styles().Muted.Render(severity)
	}
}
