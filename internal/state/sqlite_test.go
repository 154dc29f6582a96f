package state

import (
	"errors"
	"strings"
	"testing"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)

	if err := store.Open(":memory:"); err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	// Verify tables exist by querying them
	for _, table := range []string{"runs", "step_runs"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if err != nil {
			t.Errorf("table %s does not exist: %v", table, err)
			continue
		}
		rows.Close()
	}

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("failed to get migration version: %v", err)
	}
	if version < 1 {
		t.Errorf("expected migration version >= 1, got %d", version)
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	if _, err := store.CreateRun("daily.flow", "dev"); err == nil || !strings.Contains(err.Error(), "not opened") {
		t.Errorf("expected not-opened error, got %v", err)
	}
	if err := store.Migrate(); err == nil || !strings.Contains(err.Error(), "not opened") {
		t.Errorf("expected not-opened error, got %v", err)
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("daily.flow", "prod")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if run.ID == "" {
		t.Error("run ID should not be empty")
	}
	if run.Pipeline != "daily.flow" {
		t.Errorf("expected pipeline 'daily.flow', got %q", run.Pipeline)
	}
	if run.Profile != "prod" {
		t.Errorf("expected profile 'prod', got %q", run.Profile)
	}
	if run.Status != RunStatusRunning {
		t.Errorf("expected status running, got %q", run.Status)
	}
	if run.StartedAt.IsZero() {
		t.Error("started_at should be set")
	}

	got, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.ID != run.ID || got.Pipeline != run.Pipeline || got.Status != RunStatusRunning {
		t.Errorf("round-tripped run mismatch: %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("completed_at should be nil for a running run")
	}

	if err := store.CompleteRun(run.ID, RunStatusFailed, "step load:raw failed"); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	got, err = store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("failed to get completed run: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("expected status failed, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at should be set after completion")
	}
	if got.Error != "step load:raw failed" {
		t.Errorf("expected error message, got %q", got.Error)
	}
}

func TestSQLiteStore_GetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run-not-found error, got %v", err)
	}
	if err := store.CompleteRun("missing", RunStatusCompleted, ""); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run-not-found error, got %v", err)
	}
}

func TestSQLiteStore_GetLatestRun(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.GetLatestRun("daily.flow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil for pipeline with no runs, got %+v", latest)
	}

	first, err := store.CreateRun("daily.flow", "dev")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	second, err := store.CreateRun("daily.flow", "dev")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if _, err := store.CreateRun("other.flow", "dev"); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	latest, err = store.GetLatestRun("daily.flow")
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Errorf("expected latest run %s, got %+v", second.ID, latest)
	}
	if latest.ID == first.ID {
		t.Error("latest run should not be the first run")
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun("daily.flow", "dev")
		if err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("expected newest-first order, got %s then %s", runs[0].ID, runs[1].ID)
	}
}

func TestSQLiteStore_StepRuns(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun("daily.flow", "dev")
	if err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	ok := &StepRun{RunID: run.ID, StepID: "source:events", StepType: "source", Status: StepStatusRunning}
	if err := store.RecordStepRun(ok); err != nil {
		t.Fatalf("failed to record step run: %v", err)
	}
	if ok.ID == "" {
		t.Error("step run ID should be filled in")
	}
	if err := store.UpdateStepRun(ok.ID, StepStatusSuccess, 42, ""); err != nil {
		t.Fatalf("failed to update step run: %v", err)
	}

	failed := &StepRun{RunID: run.ID, StepID: "load:raw", StepType: "load", Status: StepStatusRunning}
	if err := store.RecordStepRun(failed); err != nil {
		t.Fatalf("failed to record step run: %v", err)
	}
	if err := store.UpdateStepRun(failed.ID, StepStatusFailed, 7, "connection refused"); err != nil {
		t.Fatalf("failed to update step run: %v", err)
	}

	skipped := &StepRun{RunID: run.ID, StepID: "transform:daily", StepType: "transform", Status: StepStatusSkipped}
	if err := store.RecordStepRun(skipped); err != nil {
		t.Fatalf("failed to record step run: %v", err)
	}

	steps, err := store.GetStepRuns(run.ID)
	if err != nil {
		t.Fatalf("failed to get step runs: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 step runs, got %d", len(steps))
	}

	if steps[0].StepID != "source:events" || steps[1].StepID != "load:raw" || steps[2].StepID != "transform:daily" {
		t.Errorf("steps not in recorded order: %s, %s, %s", steps[0].StepID, steps[1].StepID, steps[2].StepID)
	}
	if steps[0].Status != StepStatusSuccess || steps[0].DurationMS != 42 {
		t.Errorf("unexpected first step: %+v", steps[0])
	}
	if steps[0].CompletedAt == nil {
		t.Error("completed_at should be set after update")
	}
	if steps[1].Status != StepStatusFailed || steps[1].Error != "connection refused" {
		t.Errorf("unexpected second step: %+v", steps[1])
	}
	if steps[2].Status != StepStatusSkipped {
		t.Errorf("unexpected third step: %+v", steps[2])
	}
}

func TestSQLiteStore_UpdateStepRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpdateStepRun("missing", StepStatusSuccess, 0, "")
	if err == nil || !strings.Contains(err.Error(), "step run not found") {
		t.Errorf("expected step-run-not-found error, got %v", err)
	}
}
