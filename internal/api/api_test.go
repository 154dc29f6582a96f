package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/leapstack-labs/leapflow/pkg/plan"
	"github.com/leapstack-labs/leapflow/pkg/subst"
)

const testPipeline = `
SOURCE events TYPE csv PARAMS {"path": "data/events.csv"};
LOAD raw_events FROM events;
CREATE TABLE daily AS SELECT event_date, count(*) AS n FROM raw_events GROUP BY event_date;
EXPORT SELECT * FROM daily TO 'out/daily.csv' TYPE csv;
`

func newTestServer(t *testing.T, src string, store state.Store) *Server {
	t.Helper()
	return NewServer(Config{
		Addr:     ":0",
		Pipeline: "nightly.flow",
		Compile: func() (*plan.Plan, error) {
			return plan.Compile(src, subst.Vars{})
		},
		Store:  store,
		Logger: testutil.NewTestLogger(t),
	})
}

func openTestStore(t *testing.T) state.Store {
	t.Helper()
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testPipeline, nil)

	rec := get(t, s, "/api/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got HealthResponse
	decode(t, rec, &got)
	assert.Equal(t, "ok", got.Status)
}

func TestPlan(t *testing.T) {
	s := newTestServer(t, testPipeline, nil)

	rec := get(t, s, "/api/v1/plan")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Pipeline  string `json:"pipeline"`
		StepCount int    `json:"step_count"`
		Steps     []struct {
			ID        string   `json:"id"`
			Type      string   `json:"type"`
			DependsOn []string `json:"depends_on"`
		} `json:"steps"`
	}
	decode(t, rec, &got)

	assert.Equal(t, "nightly.flow", got.Pipeline)
	assert.Equal(t, 4, got.StepCount)
	require.Len(t, got.Steps, 4)

	wantIDs := []string{"source:events", "load:raw_events", "transform:daily", "export:out/daily.csv"}
	for i, want := range wantIDs {
		assert.Equal(t, want, got.Steps[i].ID)
	}
	assert.Equal(t, []string{"source:events"}, got.Steps[1].DependsOn)
}

func TestPlan_CompileError(t *testing.T) {
	s := newTestServer(t, `LOAD raw FROM missing;`, nil)

	rec := get(t, s, "/api/v1/plan")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var got ErrorResponse
	decode(t, rec, &got)
	assert.Contains(t, got.Error, "undeclared source")
}

func TestGraph(t *testing.T) {
	s := newTestServer(t, testPipeline, nil)

	rec := get(t, s, "/api/v1/graph")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got GraphResponse
	decode(t, rec, &got)

	assert.Equal(t, "nightly.flow", got.Pipeline)
	assert.Len(t, got.Nodes, 4)
	assert.Contains(t, got.Edges, GraphEdge{From: "source:events", To: "load:raw_events"})
	assert.Contains(t, got.Edges, GraphEdge{From: "transform:daily", To: "export:out/daily.csv"})

	// A linear chain yields one level per step.
	require.Len(t, got.Levels, 4)
	assert.Equal(t, []string{"source:events"}, got.Levels[0])
	assert.Equal(t, []string{"export:out/daily.csv"}, got.Levels[3])
}

func TestGraph_ParallelLevels(t *testing.T) {
	src := `
SOURCE s TYPE csv;
LOAD raw FROM s;
CREATE TABLE daily AS SELECT * FROM raw;
CREATE TABLE weekly AS SELECT * FROM raw;
`
	s := newTestServer(t, src, nil)

	rec := get(t, s, "/api/v1/graph")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got GraphResponse
	decode(t, rec, &got)

	// Both transforms depend only on the load, so they share a level.
	require.Len(t, got.Levels, 3)
	assert.Equal(t, []string{"transform:daily", "transform:weekly"}, got.Levels[2])
}

func TestRuns_Empty(t *testing.T) {
	s := newTestServer(t, testPipeline, openTestStore(t))

	rec := get(t, s, "/api/v1/runs")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got RunsResponse
	decode(t, rec, &got)
	assert.Empty(t, got.Runs)
}

func TestRuns_Limit(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun("nightly.flow", "dev")
		require.NoError(t, err)
		require.NoError(t, store.CompleteRun(run.ID, state.RunStatusCompleted, ""))
	}
	s := newTestServer(t, testPipeline, store)

	rec := get(t, s, "/api/v1/runs?limit=2")
	assert.Equal(t, http.StatusOK, rec.Code)

	var got RunsResponse
	decode(t, rec, &got)
	assert.Len(t, got.Runs, 2)

	// An unparseable limit falls back to the default.
	rec = get(t, s, "/api/v1/runs?limit=bogus")
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Len(t, got.Runs, 3)
}

func TestRuns_NoStore(t *testing.T) {
	s := newTestServer(t, testPipeline, nil)

	rec := get(t, s, "/api/v1/runs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var got ErrorResponse
	decode(t, rec, &got)
	assert.Contains(t, got.Error, "state store not configured")
}

func TestRunDetail(t *testing.T) {
	store := openTestStore(t)
	run, err := store.CreateRun("nightly.flow", "dev")
	require.NoError(t, err)
	sr := &state.StepRun{
		RunID:    run.ID,
		StepID:   "source:events",
		StepType: "source",
		Status:   state.StepStatusPending,
	}
	require.NoError(t, store.RecordStepRun(sr))
	require.NoError(t, store.UpdateStepRun(sr.ID, state.StepStatusSuccess, 12, ""))
	require.NoError(t, store.CompleteRun(run.ID, state.RunStatusCompleted, ""))

	s := newTestServer(t, testPipeline, store)

	rec := get(t, s, "/api/v1/runs/"+run.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	var got RunDetailResponse
	decode(t, rec, &got)

	require.NotNil(t, got.Run)
	assert.Equal(t, run.ID, got.Run.ID)
	assert.Equal(t, state.RunStatusCompleted, got.Run.Status)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "source:events", got.Steps[0].StepID)
	assert.Equal(t, state.StepStatusSuccess, got.Steps[0].Status)
	assert.Equal(t, int64(12), got.Steps[0].DurationMS)
}

func TestRunDetail_NotFound(t *testing.T) {
	s := newTestServer(t, testPipeline, openTestStore(t))

	rec := get(t, s, "/api/v1/runs/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var got ErrorResponse
	decode(t, rec, &got)
	assert.Contains(t, got.Error, "run not found")
}
