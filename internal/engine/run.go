package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/pkg/plan"
)

// StepResult is the outcome of one plan step.
type StepResult struct {
	StepID     string           `json:"step_id"`
	Type       plan.StepType    `json:"type"`
	Status     state.StepStatus `json:"status"`
	Detail     string           `json:"detail,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// Result is the outcome of a run, one entry per plan step in
// execution order.
type Result struct {
	RunID    string       `json:"run_id,omitempty"`
	Pipeline string       `json:"pipeline,omitempty"`
	DryRun   bool         `json:"dry_run,omitempty"`
	Steps    []StepResult `json:"steps"`
}

// Failed reports whether any step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == state.StepStatusFailed {
			return true
		}
	}
	return false
}

// Run executes p. Steps run sequentially in plan order; when a step
// fails, every step downstream of it is skipped while independent
// steps still run. The returned result covers all steps even when err
// is non-nil.
func (e *Engine) Run(ctx context.Context, p *plan.Plan) (*Result, error) {
	e.logger.Info("starting run",
		"pipeline", e.cfg.Pipeline,
		"steps", len(p.Steps),
		"dry_run", e.cfg.DryRun)

	if e.cfg.DryRun {
		return e.dryRun(p), nil
	}

	conn, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			e.logger.Warn("failed to close connector", "error", cerr)
		}
	}()

	// Phase 1: register the run and every step as pending.
	var run *state.Run
	stepRuns := make(map[string]*state.StepRun, len(p.Steps))
	if e.cfg.Store != nil {
		run, err = e.cfg.Store.CreateRun(e.cfg.Pipeline, e.cfg.ProfileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		for _, step := range p.Steps {
			sr := &state.StepRun{
				RunID:    run.ID,
				StepID:   step.ID,
				StepType: string(step.Type),
				Status:   state.StepStatusPending,
			}
			if err := e.cfg.Store.RecordStepRun(sr); err != nil {
				e.completeRun(run.ID, state.RunStatusFailed, err.Error())
				return nil, fmt.Errorf("failed to record step %s: %w", step.ID, err)
			}
			stepRuns[step.ID] = sr
		}
	}

	// Phase 2: execute in plan order.
	result := &Result{Pipeline: e.cfg.Pipeline}
	if run != nil {
		result.RunID = run.ID
	}
	failed := make(map[string]bool)
	var stepErrs []error

	for i := range p.Steps {
		step := &p.Steps[i]

		if dep := failedUpstream(step, failed); dep != "" {
			failed[step.ID] = true
			reason := fmt.Sprintf("skipped: upstream step %s failed", dep)
			e.recordOutcome(stepRuns[step.ID], state.StepStatusSkipped, 0, reason)
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID,
				Type:   step.Type,
				Status: state.StepStatusSkipped,
				Error:  reason,
			})
			e.logger.Debug("step skipped", "step", step.ID, "upstream", dep)
			continue
		}

		start := time.Now()
		stepErr := e.executeStep(ctx, conn, p, step)
		durationMS := time.Since(start).Milliseconds()

		if stepErr != nil {
			failed[step.ID] = true
			stepErrs = append(stepErrs, fmt.Errorf("step %s: %w", step.ID, stepErr))
			e.recordOutcome(stepRuns[step.ID], state.StepStatusFailed, durationMS, stepErr.Error())
			result.Steps = append(result.Steps, StepResult{
				StepID:     step.ID,
				Type:       step.Type,
				Status:     state.StepStatusFailed,
				Error:      stepErr.Error(),
				DurationMS: durationMS,
			})
			e.logger.Debug("step failed", "step", step.ID, "error", stepErr)
			continue
		}

		e.recordOutcome(stepRuns[step.ID], state.StepStatusSuccess, durationMS, "")
		result.Steps = append(result.Steps, StepResult{
			StepID:     step.ID,
			Type:       step.Type,
			Status:     state.StepStatusSuccess,
			Detail:     describeStep(step),
			DurationMS: durationMS,
		})
		e.logger.Debug("step executed", "step", step.ID, "duration_ms", durationMS)
	}

	runErr := errors.Join(stepErrs...)
	if run != nil {
		if runErr != nil {
			e.completeRun(run.ID, state.RunStatusFailed, fmt.Sprintf("%d step(s) failed", len(stepErrs)))
		} else {
			e.completeRun(run.ID, state.RunStatusCompleted, "")
		}
	}
	if runErr != nil {
		e.logger.Error("run failed", "pipeline", e.cfg.Pipeline, "failed_steps", len(stepErrs))
	} else {
		e.logger.Info("run completed", "pipeline", e.cfg.Pipeline, "steps", len(result.Steps))
	}
	return result, runErr
}

// dryRun resolves what each step would do without connecting to the
// warehouse or touching the state store.
func (e *Engine) dryRun(p *plan.Plan) *Result {
	result := &Result{Pipeline: e.cfg.Pipeline, DryRun: true}
	for i := range p.Steps {
		step := &p.Steps[i]
		result.Steps = append(result.Steps, StepResult{
			StepID: step.ID,
			Type:   step.Type,
			Status: state.StepStatusPending,
			Detail: describeStep(step),
		})
	}
	return result
}

// failedUpstream returns the first dependency of step that failed or
// was skipped, or "" when the step can run.
func failedUpstream(step *plan.Step, failed map[string]bool) string {
	for _, dep := range step.DependsOn {
		if failed[dep] {
			return dep
		}
	}
	return ""
}

// recordOutcome writes a step's final status to the store. Store
// failures are logged, not returned.
func (e *Engine) recordOutcome(sr *state.StepRun, status state.StepStatus, durationMS int64, errMsg string) {
	if sr == nil {
		return
	}
	if err := e.cfg.Store.UpdateStepRun(sr.ID, status, durationMS, errMsg); err != nil {
		e.logger.Warn("failed to record step outcome", "step", sr.StepID, "error", err)
	}
}

// completeRun marks the run's final status in the store.
func (e *Engine) completeRun(runID string, status state.RunStatus, errMsg string) {
	if err := e.cfg.Store.CompleteRun(runID, status, errMsg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", runID, "error", err)
	}
}
