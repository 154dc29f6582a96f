// Package state persists pipeline run history in SQLite.
// It tracks runs and the per-step outcomes within each run.
package state

import (
	"errors"
	"time"
)

// Lookup sentinels, matchable with errors.Is.
var (
	ErrRunNotFound     = errors.New("run not found")
	ErrStepRunNotFound = errors.New("step run not found")
)

// Store defines the interface for run history operations.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(pipeline, profile string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun(pipeline string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Step run operations
	RecordStepRun(step *StepRun) error
	UpdateStepRun(id string, status StepStatus, durationMS int64, errMsg string) error
	GetStepRuns(runID string) ([]*StepRun, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one execution of a pipeline file.
type Run struct {
	ID          string     `json:"id"`
	Pipeline    string     `json:"pipeline"`
	Profile     string     `json:"profile"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// StepStatus represents the status of an individual step execution.
type StepStatus string

// Step status constants.
const (
	StepStatusPending StepStatus = "pending"
	StepStatusRunning StepStatus = "running"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// StepRun represents a single step execution within a run.
type StepRun struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	StepID      string     `json:"step_id"`
	StepType    string     `json:"step_type"`
	Status      StepStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	Error       string     `json:"error,omitempty"`
}
