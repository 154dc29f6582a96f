package state

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordStepRun inserts a step execution row. A missing ID or start
// time is filled in.
func (s *SQLiteStore) RecordStepRun(step *StepRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if step.ID == "" {
		step.ID = generateID()
	}
	if step.StartedAt.IsZero() {
		step.StartedAt = time.Now().UTC()
	}

	var errorPtr *string
	if step.Error != "" {
		errorPtr = &step.Error
	}

	_, err := s.db.Exec(
		`INSERT INTO step_runs (id, run_id, step_id, step_type, status, started_at, completed_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.RunID, step.StepID, step.StepType, step.Status,
		step.StartedAt, step.CompletedAt, step.DurationMS, errorPtr,
	)
	if err != nil {
		return fmt.Errorf("failed to record step run: %w", err)
	}

	return nil
}

// UpdateStepRun records the outcome of a step execution.
func (s *SQLiteStore) UpdateStepRun(id string, status StepStatus, durationMS int64, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE step_runs SET status = ?, completed_at = ?, duration_ms = ?, error = ? WHERE id = ?`,
		status, now, durationMS, errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update step run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrStepRunNotFound, id)
	}

	return nil
}

// GetStepRuns retrieves all step executions for a run, in the order
// they were recorded.
func (s *SQLiteStore) GetStepRuns(runID string) ([]*StepRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, step_id, step_type, status, started_at, completed_at, duration_ms, error
		 FROM step_runs WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get step runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []*StepRun
	for rows.Next() {
		step, err := scanStepRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step run: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read step runs: %w", err)
	}

	return steps, nil
}

func scanStepRun(row rowScanner) (*StepRun, error) {
	step := &StepRun{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&step.ID, &step.RunID, &step.StepID, &step.StepType,
		&step.Status, &step.StartedAt, &completedAt, &step.DurationMS, &errMsg)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		step.CompletedAt = &t
	}
	if errMsg.Valid {
		step.Error = errMsg.String
	}
	return step, nil
}
