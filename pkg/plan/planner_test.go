package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/pkg/cond"
	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

func mustPlan(t *testing.T, src string, vars subst.Vars) *Plan {
	t.Helper()
	result, err := Compile(src, vars)
	require.NoError(t, err, "unexpected plan error")
	return result
}

func planErr(t *testing.T, src string, vars subst.Vars) *PlanError {
	t.Helper()
	_, err := Compile(src, vars)
	require.Error(t, err, "expected plan to fail")
	planErr, ok := err.(*PlanError)
	require.True(t, ok, "expected *PlanError, got %T: %v", err, err)
	return planErr
}

func TestPlanner_LinearPipeline(t *testing.T) {
	src := `
SOURCE events TYPE postgres PARAMS {"dsn": "${events_dsn}"};
LOAD raw_events FROM events;
CREATE TABLE daily AS SELECT date, sum(amount) AS total FROM raw_events GROUP BY date;
EXPORT SELECT * FROM daily TO 'out/daily.csv' TYPE csv OPTIONS {"header": true};
`
	vars := subst.Vars{"events_dsn": value.String("postgres://localhost/app")}
	result := mustPlan(t, src, vars)

	require.Equal(t, []string{
		"source:events",
		"load:raw_events",
		"transform:daily",
		"export:out/daily.csv",
	}, result.IDs())

	source := result.Steps[0]
	assert.Equal(t, StepSource, source.Type)
	assert.Empty(t, source.DependsOn)
	sourcePayload := source.Payload.(*SourcePayload)
	assert.Equal(t, "postgres", sourcePayload.ConnectorType)
	dsn, _ := sourcePayload.Params.Get("dsn")
	assert.Equal(t, value.String("postgres://localhost/app"), dsn, "params resolve to typed values")

	load := result.Steps[1]
	assert.Equal(t, []string{"source:events"}, load.DependsOn)
	loadPayload := load.Payload.(*LoadPayload)
	assert.Equal(t, "raw_events", loadPayload.TargetTable)
	assert.Equal(t, "events", loadPayload.SourceName)

	transform := result.Steps[2]
	assert.Equal(t, []string{"load:raw_events"}, transform.DependsOn)
	transformPayload := transform.Payload.(*TransformPayload)
	assert.Equal(t, "SELECT date, sum(amount) AS total FROM raw_events GROUP BY date", transformPayload.SQL)

	export := result.Steps[3]
	assert.Equal(t, []string{"transform:daily"}, export.DependsOn)
	exportPayload := export.Payload.(*ExportPayload)
	assert.Equal(t, "out/daily.csv", exportPayload.Destination)
	assert.Equal(t, "SELECT * FROM daily", exportPayload.SQL)
	header, _ := exportPayload.Options.Get("header")
	assert.Equal(t, value.Bool(true), header)
}

func TestPlanner_DeclarationOrderStable(t *testing.T) {
	src := `
SOURCE a TYPE csv;
SOURCE b TYPE csv;
LOAD t1 FROM b;
LOAD t2 FROM a;
`
	result := mustPlan(t, src, nil)
	assert.Equal(t, []string{"source:a", "source:b", "load:t1", "load:t2"}, result.IDs(),
		"independent steps keep declaration order")
}

func TestPlanner_DependenciesBeforeDependents(t *testing.T) {
	// The transform is declared before the load it reads from; the plan
	// must reorder them.
	src := `
SOURCE s TYPE csv;
CREATE TABLE daily AS SELECT * FROM raw;
LOAD raw FROM s;
`
	result := mustPlan(t, src, nil)
	assert.Equal(t, []string{"source:s", "load:raw", "transform:daily"}, result.IDs())
}

func TestPlanner_NoForwardReferences(t *testing.T) {
	src := `
SOURCE s TYPE csv;
LOAD raw FROM s;
CREATE TABLE a AS SELECT * FROM raw;
CREATE TABLE b AS SELECT * FROM raw;
CREATE TABLE c AS SELECT * FROM a JOIN b ON a.id=b.id;
EXPORT SELECT * FROM c TO out TYPE csv;
`
	result := mustPlan(t, src, nil)

	position := make(map[string]int)
	for i, step := range result.Steps {
		position[step.ID] = i
	}
	for i, step := range result.Steps {
		for _, dep := range step.DependsOn {
			depPos, ok := position[dep]
			require.True(t, ok, "dependency %q of %q missing from plan", dep, step.ID)
			assert.Less(t, depPos, i, "dependency %q must precede %q", dep, step.ID)
		}
	}
}

func TestPlanner_ReferenceMatchingIsCaseInsensitive(t *testing.T) {
	src := `
SOURCE s TYPE csv;
LOAD Raw FROM s;
CREATE TABLE daily AS SELECT * FROM RAW;
`
	result := mustPlan(t, src, nil)
	transform, ok := result.Step("transform:daily")
	require.True(t, ok)
	assert.Equal(t, []string{"load:raw"}, transform.DependsOn)
}

func TestPlanner_FirstMatchWins(t *testing.T) {
	src := `
SOURCE s TYPE csv;
IF ${a} = 1 THEN
  LOAD x FROM s;
ELSEIF ${a} = 2 THEN
  LOAD y FROM s;
ELSE
  LOAD z FROM s;
ENDIF
`
	file, err := parser.Parse(src)
	require.NoError(t, err)
	planner := NewPlanner(nil)

	tests := []struct {
		name string
		a    string
		want string
	}{
		{"first branch", "1", "load:x"},
		{"second branch", "2", "load:y"},
		{"else branch", "3", "load:z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := planner.Plan(file, subst.Vars{"a": value.Number(tt.a)})
			require.NoError(t, err)
			assert.Equal(t, []string{"source:s", tt.want}, result.IDs(),
				"exactly one branch contributes steps")
		})
	}
}

func TestPlanner_NoMatchNoElse(t *testing.T) {
	src := `
IF ${env|'dev'} = 'prod' THEN
  LOAD x FROM s;
ENDIF
`
	result := mustPlan(t, src, nil)
	assert.Empty(t, result.Steps, "a block with no matching branch and no ELSE contributes zero steps")
}

func TestPlanner_NestedConditionals(t *testing.T) {
	src := `
SOURCE s TYPE csv;
IF ${env} = 'prod' THEN
  IF ${region} = 'eu' THEN
    LOAD eu_events FROM s;
  ELSE
    LOAD us_events FROM s;
  ENDIF
ENDIF
`
	vars := subst.Vars{"env": value.String("prod"), "region": value.String("eu")}
	result := mustPlan(t, src, vars)
	assert.Equal(t, []string{"source:s", "load:eu_events"}, result.IDs())
}

func TestPlanner_CyclicDependency(t *testing.T) {
	src := `
CREATE TABLE a AS SELECT * FROM b;
CREATE TABLE b AS SELECT * FROM a;
`
	err := planErr(t, src, nil)
	assert.Equal(t, CyclicDependency, err.Kind)
	assert.Contains(t, err.Detail, "transform:a")
	assert.Contains(t, err.Detail, "transform:b")
}

func TestPlanner_SelfReferenceIsACycle(t *testing.T) {
	err := planErr(t, "CREATE TABLE x AS SELECT * FROM x;", nil)
	assert.Equal(t, CyclicDependency, err.Kind)
	assert.Contains(t, err.Detail, "transform:x")
}

func TestPlanner_DuplicateStepName(t *testing.T) {
	src := `
CREATE TABLE x AS SELECT 1;
CREATE TABLE x AS SELECT 2;
`
	err := planErr(t, src, nil)
	assert.Equal(t, DuplicateStepName, err.Kind)
	assert.Contains(t, err.Detail, "transform:x")
	assert.Equal(t, 3, err.Span.Start.Line, "error points at the second declaration")
}

func TestPlanner_DuplicateProducedTable(t *testing.T) {
	src := `
SOURCE s TYPE csv;
LOAD x FROM s;
CREATE TABLE x AS SELECT 1;
`
	err := planErr(t, src, nil)
	assert.Equal(t, DuplicateStepName, err.Kind)
	assert.Contains(t, err.Detail, "load:x")
	assert.Contains(t, err.Detail, "transform:x")
}

func TestPlanner_DanglingSource(t *testing.T) {
	err := planErr(t, "LOAD x FROM nowhere;", nil)
	assert.Equal(t, DanglingReference, err.Kind)
	assert.Contains(t, err.Detail, `undeclared source "nowhere"`)
}

func TestPlanner_SourceInUntakenBranchIsGone(t *testing.T) {
	// The source only exists in a branch that is not selected, so the
	// load dangles.
	src := `
IF false THEN
  SOURCE s TYPE csv;
ENDIF
LOAD x FROM s;
`
	err := planErr(t, src, nil)
	assert.Equal(t, DanglingReference, err.Kind)
}

func TestPlanner_SQLContextResolution(t *testing.T) {
	src := "CREATE TABLE t AS SELECT * FROM r WHERE region = ${region} LIMIT ${limit|100};"
	result := mustPlan(t, src, subst.Vars{"region": value.String("eu-west")})

	payload := result.Steps[0].Payload.(*TransformPayload)
	assert.Equal(t, "SELECT * FROM r WHERE region = 'eu-west' LIMIT 100", payload.SQL,
		"strings are quoted and defaults applied in sql context")
}

func TestPlanner_DestinationPlainResolution(t *testing.T) {
	src := "EXPORT SELECT 1 TO 'out/${env}/daily.csv' TYPE csv;"
	result := mustPlan(t, src, subst.Vars{"env": value.String("prod")})

	payload := result.Steps[0].Payload.(*ExportPayload)
	assert.Equal(t, "out/prod/daily.csv", payload.Destination,
		"destinations resolve in plain context, unquoted")
}

func TestPlanner_UnresolvedVariableInSQL(t *testing.T) {
	src := "CREATE TABLE t AS SELECT * FROM r WHERE env = ${env};"
	_, err := Compile(src, nil)
	require.Error(t, err)

	unresolved, ok := err.(*subst.UnresolvedVariableError)
	require.True(t, ok, "expected *subst.UnresolvedVariableError, got %T", err)
	assert.Equal(t, "env", unresolved.Name)
	assert.Equal(t, 1, unresolved.Span.Start.Line)
	assert.Equal(t, 47, unresolved.Span.Start.Column, "span points into the SQL body")
}

func TestPlanner_UnresolvedVariableInParams(t *testing.T) {
	src := `SOURCE s TYPE pg PARAMS {"dsn": "${missing}"};`
	_, err := Compile(src, nil)
	require.Error(t, err)

	unresolved, ok := err.(*subst.UnresolvedVariableError)
	require.True(t, ok, "expected *subst.UnresolvedVariableError, got %T", err)
	assert.Equal(t, "missing", unresolved.Name)
	assert.Equal(t, 25, unresolved.Span.Start.Column, "span pinned to the params block")
}

func TestPlanner_ConditionEvalError(t *testing.T) {
	src := "IF ${mode} THEN LOAD x FROM s; ENDIF"
	_, err := Compile(src, subst.Vars{"mode": value.String("fast")})
	require.Error(t, err)

	evalErr, ok := err.(*cond.EvalError)
	require.True(t, ok, "expected *cond.EvalError, got %T", err)
	assert.Contains(t, evalErr.Message, `non-boolean operand "fast"`)
}

func TestPlanner_ReplanKeepsIdentity(t *testing.T) {
	src := `
SOURCE s TYPE csv;
IF ${env} = 'prod' THEN
  LOAD full FROM s;
ELSE
  LOAD sample FROM s;
ENDIF
`
	file, err := parser.Parse(src)
	require.NoError(t, err)
	planner := NewPlanner(nil)

	prod, err := planner.Plan(file, subst.Vars{"env": value.String("prod")})
	require.NoError(t, err)
	dev, err := planner.Plan(file, subst.Vars{"env": value.String("dev")})
	require.NoError(t, err)

	assert.Equal(t, []string{"source:s", "load:full"}, prod.IDs())
	assert.Equal(t, []string{"source:s", "load:sample"}, dev.IDs())

	prodSource, _ := prod.Step("source:s")
	devSource, _ := dev.Step("source:s")
	assert.Equal(t, prodSource.ID, devSource.ID, "shared steps keep their identity across bindings")
}

func TestPlanner_EmptyFile(t *testing.T) {
	result := mustPlan(t, "-- nothing to do\n", nil)
	assert.Empty(t, result.Steps)
}

func TestPlan_StepLookup(t *testing.T) {
	result := mustPlan(t, "SOURCE s TYPE csv;", nil)

	step, ok := result.Step("source:s")
	require.True(t, ok)
	assert.Equal(t, "s", step.Name)

	_, ok = result.Step("load:none")
	assert.False(t, ok)
}
