package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/internal/state"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	VarFlags
	DryRun bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <file.flow>",
		Short: "Compile and execute a pipeline",
		Long: `Compile a pipeline into an execution plan and run it against the
active profile's connector. Steps run in dependency order; when a step
fails, everything downstream of it is skipped while independent steps
still run. Run history is recorded in the state store.`,
		Example: `  # Run a pipeline
  leapflow run nightly.flow

  # Run with a variable override
  leapflow run nightly.flow --var region=eu

  # Resolve every step without executing anything
  leapflow run nightly.flow --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	addVarFlags(cmd, &opts.VarFlags)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Resolve every step without executing it")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	cc := NewCommandContext(cmd)
	start := time.Now()

	profile, err := cc.Cfg.ActiveProfile()
	if err != nil {
		return err
	}
	vars, err := buildVars(profile, &opts.VarFlags)
	if err != nil {
		return err
	}

	p, src, err := compilePipeline(path, vars)
	if err != nil {
		if cc.Renderer.EffectiveMode() == output.ModeJSON {
			return err
		}
		renderDiagnostic(cc.Renderer, src, err)
		return fmt.Errorf("compilation failed")
	}

	// A dry run never touches the store.
	var store state.Store
	if !opts.DryRun {
		store, err = openStore(cc.Cfg, cc.Logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	eng := engine.New(engine.Config{
		Logger:      cc.Logger,
		Store:       store,
		Profile:     profile,
		ProfileName: cc.Cfg.Profile,
		Connector:   cc.Cfg.DefaultConnector,
		Pipeline:    path,
		DryRun:      opts.DryRun,
	})

	result, runErr := eng.Run(cmd.Context(), p)
	if result == nil {
		return runErr
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		if err := cc.Renderer.JSON(result); err != nil {
			return err
		}
	} else {
		renderRunResult(cc.Renderer, path, result, time.Since(start))
	}

	if runErr != nil {
		return fmt.Errorf("run failed")
	}
	return nil
}

func renderRunResult(r *output.Renderer, path string, result *engine.Result, elapsed time.Duration) {
	if result.DryRun {
		r.Header(1, "Dry Run "+path)
	} else {
		r.Header(1, "Run "+path)
	}
	r.Println()

	var failed, skipped int
	for _, s := range result.Steps {
		detail := s.Detail
		switch s.Status {
		case state.StepStatusFailed:
			failed++
			detail = s.Error
		case state.StepStatusSkipped:
			skipped++
			detail = s.Error
		case state.StepStatusSuccess:
			if s.DurationMS > 0 {
				detail = fmt.Sprintf("%s (%dms)", s.Detail, s.DurationMS)
			}
		}
		r.StatusLine(s.StepID, string(s.Status), detail)
	}
	r.Println()

	if result.DryRun {
		r.Success(fmt.Sprintf("%d steps resolved, nothing executed", len(result.Steps)))
		return
	}

	rounded := elapsed.Round(time.Millisecond)
	if failed > 0 {
		msg := fmt.Sprintf("Run %s failed in %s: %d of %d steps failed", result.RunID, rounded, failed, len(result.Steps))
		if skipped > 0 {
			msg += fmt.Sprintf(", %d skipped", skipped)
		}
		r.Println(r.Styles().Error.Render("✗") + " " + msg)
		return
	}
	r.Success(fmt.Sprintf("Run %s completed in %s: %d steps", result.RunID, rounded, len(result.Steps)))
}
