package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.flow>",
		Short: "Check a pipeline file for syntax errors",
		Long: `Lex and parse a pipeline file without compiling a plan.

Variables are not resolved and conditions are not evaluated, so a file
can validate even when profile variables are missing. Diagnostics point
into the source with line, column, and a caret.`,
		Example: `  # Validate a pipeline
  leapflow validate pipelines/nightly.flow

  # Machine-readable diagnostics
  leapflow validate pipelines/nightly.flow -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, path string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	src, err := loadPipeline(path)
	if err != nil {
		return err
	}

	_, parseErr := parser.Parse(src)

	if r.EffectiveMode() == output.ModeJSON {
		return validateJSON(r, path, src, parseErr)
	}

	if parseErr != nil {
		renderDiagnostic(r, src, parseErr)
		return fmt.Errorf("validation failed")
	}

	r.Success(fmt.Sprintf("%s is valid", path))
	return nil
}

func validateJSON(r *output.Renderer, path, src string, parseErr error) error {
	result := output.ValidateOutput{
		Pipeline: path,
		Valid:    parseErr == nil,
	}
	if parseErr != nil {
		result.Errors = append(result.Errors, toDiagnostic(parseErr))
	}
	if err := r.JSON(result); err != nil {
		return err
	}
	if parseErr != nil {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// toDiagnostic projects a compiler error into the output shape,
// classifying it by the stage that produced it.
func toDiagnostic(err error) output.Diagnostic {
	d := output.Diagnostic{Kind: "error", Message: err.Error()}

	var pe positioned
	if errors.As(err, &pe) {
		pos := pe.Position()
		d.Line = pos.Line
		d.Column = pos.Column
	}

	var lexErr *parser.LexError
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &lexErr):
		d.Kind = "lex"
	case errors.As(err, &parseErr):
		d.Kind = "parse"
	}
	return d
}
