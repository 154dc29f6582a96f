package subst

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

func TestEngine_Resolve_PlainContext(t *testing.T) {
	e := New(Config{})
	vars := Vars{
		"name":   value.String("events"),
		"limit":  value.Number("100"),
		"strict": value.Bool(true),
		"label":  value.Null{},
	}

	tests := []struct {
		template string
		expected string
	}{
		{"table is ${name}", "table is events"},
		{"limit ${limit}", "limit 100"},
		{"strict=${strict}", "strict=true"},
		{"label=${label}", "label=null"},
		{"${name}_${limit}", "events_100"},
	}

	for _, tt := range tests {
		got, err := e.Resolve(tt.template, vars, ContextPlain)
		require.NoError(t, err, "template %q", tt.template)
		assert.Equal(t, tt.expected, got, "template %q", tt.template)
	}
}

func TestEngine_Resolve_SQLContext(t *testing.T) {
	e := New(Config{})
	vars := Vars{
		"region": value.String("eu-west"),
		"owner":  value.String("O'Brien"),
		"limit":  value.Number("100"),
		"active": value.Bool(true),
		"missed": value.Null{},
	}

	tests := []struct {
		template string
		expected string
	}{
		{"WHERE region = ${region}", "WHERE region = 'eu-west'"},
		{"WHERE owner = ${owner}", "WHERE owner = 'O''Brien'"},
		{"LIMIT ${limit}", "LIMIT 100"},
		{"WHERE active = ${active}", "WHERE active = TRUE"},
		{"WHERE deleted_at IS ${missed}", "WHERE deleted_at IS NULL"},
	}

	for _, tt := range tests {
		got, err := e.Resolve(tt.template, vars, ContextSQL)
		require.NoError(t, err, "template %q", tt.template)
		assert.Equal(t, tt.expected, got, "template %q", tt.template)
	}
}

func TestEngine_Resolve_LiteralContext(t *testing.T) {
	e := New(Config{})
	vars := Vars{
		"host": value.String("db.internal"),
		"port": value.Number("5432"),
		"ssl":  value.Bool(false),
	}

	got, err := e.Resolve(`{"host": ${host}, "port": ${port}, "ssl": ${ssl}}`, vars, ContextLiteral)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, `{"host": "db.internal", "port": 5432, "ssl": false}`, got)
}

func TestEngine_Resolve_StructuredValueInSQL(t *testing.T) {
	e := New(Config{})
	obj := &value.Object{}
	obj.Set("a", value.Number("1"))
	vars := Vars{"cfg": obj, "tags": value.Array{value.String("x"), value.String("y")}}

	got, err := e.Resolve("SELECT ${cfg}, ${tags}", vars, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, `SELECT '{"a":1}', '["x","y"]'`, got)

	got, err = e.Resolve("${cfg}", vars, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, `{"a":1}`, got)
}

func TestEngine_Resolve_StructuredLeafRecursion(t *testing.T) {
	e := New(Config{})
	cfg := &value.Object{}
	cfg.Set("dsn", value.String("host=${host} port=${port|5432}"))
	vars := Vars{"cfg": cfg, "host": value.String("db1")}

	got, err := e.Resolve("conn = ${cfg}", vars, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, `conn = '{"dsn":"host=db1 port=5432"}'`, got,
		"string leaves of a structured value resolve before splicing")
}

func TestEngine_Resolve_ExpansionDepthLimit(t *testing.T) {
	e := New(Config{})
	a := &value.Object{}
	a.Set("ref", value.String("${b}"))
	b := &value.Object{}
	b.Set("ref", value.String("${a}"))
	vars := Vars{"a": a, "b": b}

	_, err := e.Resolve("${a}", vars, ContextPlain)
	require.Error(t, err, "mutually referencing values must not loop")

	scanErr, ok := err.(*ScanError)
	require.True(t, ok, "expected ScanError, got %T", err)
	assert.Contains(t, scanErr.Message, "too deep")
}

func TestEngine_Resolve_Defaults(t *testing.T) {
	e := New(Config{})

	got, err := e.Resolve("LIMIT ${limit|100}", nil, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "LIMIT 100", got, "numeric default stays unquoted in sql")

	got, err = e.Resolve("${greeting|'hello'} ${flag|true} ${opt|null}", nil, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "hello true null", got)

	// A binding beats the default.
	got, err = e.Resolve("LIMIT ${limit|100}", Vars{"limit": value.Number("5")}, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "LIMIT 5", got)
}

func TestEngine_Resolve_Unresolved(t *testing.T) {
	e := New(Config{})

	_, err := e.Resolve("SELECT * FROM ${missing}", Vars{"other": value.Number("1")}, ContextSQL)
	require.Error(t, err, "expected error for unresolved variable")

	unresolved, ok := err.(*UnresolvedVariableError)
	require.True(t, ok, "expected UnresolvedVariableError, got %T", err)
	assert.Equal(t, "missing", unresolved.Name, "expected variable name")
	assert.Equal(t, 15, unresolved.Position().Column, "expected column 15")
}

func TestEngine_Resolve_NoMarkerFastPath(t *testing.T) {
	e := New(Config{})

	input := "SELECT * FROM events WHERE price > $100"
	got, err := e.Resolve(input, nil, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, input, got, "no-marker template passes through")
	assert.Equal(t, 0, e.CacheLen(), "fast path must not populate the cache")
}

func TestEngine_Resolve_Idempotent(t *testing.T) {
	e := New(Config{})
	vars := Vars{"region": value.String("eu")}

	once, err := e.Resolve("region = ${region}", vars, ContextSQL)
	require.NoError(t, err, "unexpected error")

	twice, err := e.Resolve(once, vars, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, once, twice, "resolving resolved text is a no-op")
}

func TestEngine_Resolve_ValueNotRescanned(t *testing.T) {
	e := New(Config{})
	// A substituted value containing ${...} is spliced verbatim, not
	// resolved again.
	vars := Vars{"a": value.String("${b}"), "b": value.String("boom")}

	got, err := e.Resolve("x=${a}", vars, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "x=${b}", got)
}

func TestEngine_ResolveAt_Position(t *testing.T) {
	e := New(Config{})
	base := token.Position{Line: 10, Column: 3, Offset: 100}

	_, err := e.ResolveAt("x\n${oops}", base, nil, ContextSQL)
	require.Error(t, err, "expected error")

	unresolved, ok := err.(*UnresolvedVariableError)
	require.True(t, ok, "expected UnresolvedVariableError, got %T", err)
	assert.Equal(t, 11, unresolved.Position().Line, "expected line 11")
	assert.Equal(t, 1, unresolved.Position().Column, "expected column 1")
}

func TestEngine_ResolveValue(t *testing.T) {
	e := New(Config{})
	block := `{
		"port": "${port}",
		"host": "db-${region}.internal",
		"tags": ["${env}", "fixed"],
		"auth": {"user": "${user|admin}"}
	}`
	obj, err := value.Parse(block, token.Position{Line: 1, Column: 1})
	require.NoError(t, err, "params block must parse")

	vars := Vars{
		"port":   value.Number("5432"),
		"region": value.String("eu"),
		"env":    value.String("prod"),
	}

	resolved, err := e.ResolveValue(obj, vars)
	require.NoError(t, err, "unexpected error")

	out, ok := resolved.(*value.Object)
	require.True(t, ok, "expected object, got %T", resolved)

	port, _ := out.Get("port")
	assert.Equal(t, value.Number("5432"), port, "whole-leaf expression keeps the variable's type")

	host, _ := out.Get("host")
	assert.Equal(t, value.String("db-eu.internal"), host, "partial expression splices as text")

	tags, _ := out.Get("tags")
	require.IsType(t, value.Array{}, tags)
	assert.Equal(t, value.String("prod"), tags.(value.Array)[0])

	auth, _ := out.Get("auth")
	user, _ := auth.(*value.Object).Get("user")
	assert.Equal(t, value.String("admin"), user, "default applies inside nested values")

	assert.Equal(t,
		`{"port":5432,"host":"db-eu.internal","tags":["prod","fixed"],"auth":{"user":"admin"}}`,
		value.JSON(resolved), "rendered payload")
}

func TestEngine_ResolveValue_TypedLeaves(t *testing.T) {
	e := New(Config{})
	vars := Vars{
		"flag": value.Bool(true),
		"nil":  value.Null{},
		"nums": value.Array{value.Number("1"), value.Number("2")},
	}

	for name, want := range map[string]value.Value{
		"flag": value.Bool(true),
		"nil":  value.Null{},
		"nums": value.Array{value.Number("1"), value.Number("2")},
	} {
		got, err := e.ResolveValue(value.String("${"+name+"}"), vars)
		require.NoError(t, err, "variable %s", name)
		assert.Equal(t, want, got, "variable %s", name)
	}

	// Non-string leaves pass through untouched.
	got, err := e.ResolveValue(value.Number("42"), vars)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, value.Number("42"), got)
}

func TestEngine_ResolveValue_Unresolved(t *testing.T) {
	e := New(Config{})
	obj := &value.Object{}
	obj.Set("key", value.String("${nope}"))

	_, err := e.ResolveValue(obj, nil)
	require.Error(t, err, "expected error")

	unresolved, ok := err.(*UnresolvedVariableError)
	require.True(t, ok, "expected UnresolvedVariableError, got %T", err)
	assert.Equal(t, "nope", unresolved.Name)
}

func TestEngine_CacheEviction(t *testing.T) {
	e := New(Config{CacheSize: 2})
	vars := Vars{"x": value.Number("1")}

	for i := 0; i < 3; i++ {
		_, err := e.Resolve(fmt.Sprintf("t%d ${x}", i), vars, ContextPlain)
		require.NoError(t, err, "unexpected error")
	}
	assert.Equal(t, 2, e.CacheLen(), "capacity bounds the cache")

	// A hit must still return the right resolution.
	got, err := e.Resolve("t2 ${x}", vars, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "t2 1", got)
	assert.Equal(t, 2, e.CacheLen(), "hit does not grow the cache")
}

func TestEngine_CacheKeyedByVars(t *testing.T) {
	e := New(Config{})

	got, err := e.Resolve("v=${x}", Vars{"x": value.Number("1")}, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "v=1", got)

	// Same template, different binding: the stale entry must not win.
	got, err = e.Resolve("v=${x}", Vars{"x": value.Number("2")}, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "v=2", got)

	// Same template, different context.
	got, err = e.Resolve("v=${x}", Vars{"x": value.String("a")}, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "v='a'", got)

	// Equal mappings built separately share one entry.
	before := e.CacheLen()
	_, err = e.Resolve("v=${x}", Vars{"x": value.Number("2")}, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, before, e.CacheLen(), "identical snapshot reuses the entry")
}

func TestEngine_CacheOversizeBypass(t *testing.T) {
	e := New(Config{CacheSize: 8, MaxTemplateSize: 16})
	vars := Vars{"x": value.Number("1")}

	long := "SELECT ${x} FROM a_table_name_well_past_the_limit"
	got, err := e.Resolve(long, vars, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, "SELECT 1 FROM a_table_name_well_past_the_limit", got)
	assert.Equal(t, 0, e.CacheLen(), "oversized template is not cached")

	_, err = e.Resolve("v=${x}", vars, ContextSQL)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, 1, e.CacheLen(), "small template is cached")
}

func TestEngine_CacheDisabled(t *testing.T) {
	e := New(Config{CacheSize: -1})

	_, err := e.Resolve("v=${x|1}", nil, ContextPlain)
	require.NoError(t, err, "unexpected error")
	assert.Equal(t, 0, e.CacheLen(), "negative size disables caching")
}

func TestEngine_Clear(t *testing.T) {
	e := New(Config{})

	_, err := e.Resolve("v=${x|1}", nil, ContextPlain)
	require.NoError(t, err, "unexpected error")
	require.Equal(t, 1, e.CacheLen())

	e.Clear()
	assert.Equal(t, 0, e.CacheLen(), "clear drops all entries")
}

func TestEngine_Resolve_Concurrent(t *testing.T) {
	e := New(Config{CacheSize: 4})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			vars := Vars{"n": value.Number(fmt.Sprintf("%d", g))}
			want := fmt.Sprintf("n=%d", g)
			for i := 0; i < 200; i++ {
				got, err := e.Resolve("n=${n}", vars, ContextPlain)
				if err != nil {
					t.Errorf("goroutine %d: unexpected error: %v", g, err)
					return
				}
				if got != want {
					t.Errorf("goroutine %d: expected %q, got %q", g, want, got)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
