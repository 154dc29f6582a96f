package commands

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/watch"
	"github.com/leapstack-labs/leapflow/pkg/plan"
	"github.com/leapstack-labs/leapflow/pkg/subst"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	VarFlags
	Watch bool
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "plan <file.flow>",
		Short: "Compile a pipeline and show its execution plan",
		Long: `Compile a pipeline file into a dependency-ordered execution plan
without running any step. Variables resolve from the active profile,
--vars-file and --var, and conditional blocks are evaluated, so the
plan matches exactly what run would execute.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}

	addVarFlags(cmd, &opts.VarFlags)
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Recompile whenever the file changes")

	return cmd
}

func runPlan(cmd *cobra.Command, path string, opts *PlanOptions) error {
	cc := NewCommandContext(cmd)

	profile, err := cc.Cfg.ActiveProfile()
	if err != nil {
		return err
	}
	vars, err := buildVars(profile, &opts.VarFlags)
	if err != nil {
		return err
	}

	if opts.Watch {
		return planWatch(cmd, cc, path, vars)
	}
	return planOnce(cc, path, vars)
}

// planOnce compiles the pipeline and renders the plan in the active
// output mode.
func planOnce(cc *CommandContext, path string, vars subst.Vars) error {
	p, src, err := compilePipeline(path, vars)
	if err != nil {
		if cc.Renderer.EffectiveMode() == output.ModeJSON {
			return err
		}
		renderDiagnostic(cc.Renderer, src, err)
		return fmt.Errorf("compilation failed")
	}

	switch cc.Renderer.EffectiveMode() {
	case output.ModeJSON:
		return planJSON(cc, path, p)
	case output.ModeMarkdown:
		planMarkdown(cc, path, p)
	default:
		planText(cc, p)
	}
	return nil
}

// planWatch recompiles and re-renders on every change to the pipeline
// file until the context is cancelled. Compile failures are reported
// and watched through rather than aborting the loop.
func planWatch(cmd *cobra.Command, cc *CommandContext, path string, vars subst.Vars) error {
	w, err := watch.New(watch.Config{Logger: cc.Logger})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	if err := w.AddFile(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	if err := planOnce(cc, path, vars); err != nil && cc.Renderer.EffectiveMode() == output.ModeJSON {
		cc.Renderer.Warning(err.Error())
	}
	cc.Renderer.Println()
	cc.Renderer.Muted(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", path))

	return w.Run(cmd.Context(), func(string) {
		cc.Renderer.Println()
		if err := planOnce(cc, path, vars); err != nil && cc.Renderer.EffectiveMode() == output.ModeJSON {
			cc.Renderer.Warning(err.Error())
		}
	})
}

func planJSON(cc *CommandContext, path string, p *plan.Plan) error {
	out := output.PlanOutput{
		Pipeline: path,
		Profile:  cc.Cfg.Profile,
		Steps:    make([]output.PlanStep, 0, len(p.Steps)),
	}
	for _, step := range p.Steps {
		out.Steps = append(out.Steps, output.PlanStep{
			ID:        step.ID,
			Type:      string(step.Type),
			Name:      step.Name,
			DependsOn: step.DependsOn,
			Detail:    stepDetail(step),
		})
	}
	return cc.Renderer.JSON(out)
}

func planMarkdown(cc *CommandContext, path string, p *plan.Plan) {
	r := cc.Renderer
	r.Println(output.FormatHeader(1, "Execution Plan"))
	r.Println()
	for i, step := range p.Steps {
		line := fmt.Sprintf("%d. `%s`", i+1, step.ID)
		if detail := stepDetail(step); detail != "" {
			line += " " + detail
		}
		r.Println(line)
		if len(step.DependsOn) > 0 {
			r.Println(fmt.Sprintf("   - depends on: %s", strings.Join(quoteAll(step.DependsOn), ", ")))
		}
	}
	r.Println()
	r.Println(output.FormatKeyValue("Pipeline", path))
	if cc.Cfg.Profile != "" {
		r.Println(output.FormatKeyValue("Profile", cc.Cfg.Profile))
	}
	r.Println(output.FormatKeyValue("Steps", fmt.Sprintf("%d", len(p.Steps))))
}

func planText(cc *CommandContext, p *plan.Plan) {
	r := cc.Renderer
	r.Header(1, "Execution Plan")
	r.Println()
	for i, step := range p.Steps {
		r.StepLine(i+1, step.ID, stepDetail(step))
		if len(step.DependsOn) > 0 {
			r.Muted("     depends on: " + strings.Join(step.DependsOn, ", "))
		}
	}
	r.Println()
	r.Muted(fmt.Sprintf("%d steps, profile %s", len(p.Steps), cc.Cfg.Profile))
}

// stepDetail summarizes a step's payload in one line.
func stepDetail(step plan.Step) string {
	switch p := step.Payload.(type) {
	case *plan.SourcePayload:
		return "TYPE " + p.ConnectorType
	case *plan.LoadPayload:
		detail := "FROM " + p.SourceName
		if p.Mode != "" {
			detail += " MODE " + p.Mode
		}
		return detail
	case *plan.TransformPayload:
		return sqlSummary(p.SQL)
	case *plan.ExportPayload:
		return "TO " + p.Destination + " TYPE " + p.ConnectorType
	default:
		return ""
	}
}

// sqlSummary collapses a SQL statement onto one trimmed line for step
// listings.
func sqlSummary(sql string) string {
	const max = 60
	line := strings.Join(strings.Fields(sql), " ")
	if utf8.RuneCountInString(line) <= max {
		return line
	}
	runes := []rune(line)
	return string(runes[:max-3]) + "..."
}

func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "`" + id + "`"
	}
	return out
}
