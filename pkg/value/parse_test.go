package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

func origin() token.Position {
	return token.Position{Line: 1, Column: 1, Offset: 0}
}

func TestParse_Object(t *testing.T) {
	obj, err := Parse(`{"path": "data.csv", "header": true, "limit": 100, "ratio": 0.5, "note": null}`, origin())
	require.NoError(t, err)

	assert.Equal(t, []string{"path", "header", "limit", "ratio", "note"}, obj.Keys())

	path, ok := obj.Get("path")
	require.True(t, ok)
	assert.Equal(t, String("data.csv"), path)

	header, _ := obj.Get("header")
	assert.Equal(t, Bool(true), header)

	limit, _ := obj.Get("limit")
	assert.Equal(t, Number("100"), limit, "number keeps its source lexeme")

	ratio, _ := obj.Get("ratio")
	assert.Equal(t, Number("0.5"), ratio)

	note, _ := obj.Get("note")
	assert.Equal(t, Null{}, note)
}

func TestParse_Nested(t *testing.T) {
	obj, err := Parse(`{"extensions": ["httpfs", "json"], "settings": {"threads": 4}}`, origin())
	require.NoError(t, err)

	exts, ok := obj.Get("extensions")
	require.True(t, ok)
	arr, ok := exts.(Array)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, String("httpfs"), arr[0])

	settings, ok := obj.Get("settings")
	require.True(t, ok)
	inner, ok := settings.(*Object)
	require.True(t, ok)
	threads, ok := inner.Get("threads")
	require.True(t, ok)
	assert.Equal(t, Number("4"), threads)
}

func TestParse_EmptyObject(t *testing.T) {
	obj, err := Parse(`{}`, origin())
	require.NoError(t, err)
	assert.Empty(t, obj.Fields)
}

func TestParse_EmptyArray(t *testing.T) {
	obj, err := Parse(`{"xs": []}`, origin())
	require.NoError(t, err)
	xs, _ := obj.Get("xs")
	assert.Equal(t, Array{}, xs)
}

func TestParse_NegativeAndExponentNumbers(t *testing.T) {
	obj, err := Parse(`{"a": -3, "b": 1.5e3, "c": 2E-1}`, origin())
	require.NoError(t, err)

	a, _ := obj.Get("a")
	assert.Equal(t, Number("-3"), a)
	b, _ := obj.Get("b")
	assert.Equal(t, Number("1.5e3"), b)
	c, _ := obj.Get("c")
	assert.Equal(t, Number("2E-1"), c)
}

func TestParse_StringEscapes(t *testing.T) {
	obj, err := Parse(`{"s": "a\"b\\c\ndA"}`, origin())
	require.NoError(t, err)
	s, _ := obj.Get("s")
	assert.Equal(t, String("a\"b\\c\ndA"), s)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		message string
	}{
		{"trailing comma in object", `{"a": 1,}`, "trailing comma"},
		{"trailing comma in array", `{"a": [1,]}`, "trailing comma"},
		{"duplicate key", `{"a": 1, "a": 2}`, `duplicate key "a"`},
		{"unterminated string", `{"a": "x`, "unterminated string"},
		{"missing colon", `{"a" 1}`, "expected ':'"},
		{"single-quoted key", `{'a': 1}`, "expected object key"},
		{"bare word value", `{"a": yes}`, `unexpected word "yes"`},
		{"not an object", `[1, 2]`, "expected '{'"},
		{"trailing content", `{} extra`, "trailing content"},
		{"dot without digits", `{"a": 1.}`, "expected digit after '.'"},
		{"malformed exponent", `{"a": 1e}`, "malformed exponent"},
		{"bad escape", `{"a": "\q"}`, "invalid escape"},
		{"truncated", `{"a": `, "unexpected end of block"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.block, origin())
			require.Error(t, err)

			var syn *SyntaxError
			require.ErrorAs(t, err, &syn)
			assert.Contains(t, syn.Error(), tt.message)
		})
	}
}

func TestParse_ErrorPositionRelativeToBase(t *testing.T) {
	// The block starts mid-file; errors must point into the original
	// source, not the block.
	base := token.Position{Line: 3, Column: 10, Offset: 40}
	_, err := Parse("{\n\"a\": nope}", base)
	require.Error(t, err)

	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
	assert.Equal(t, 4, syn.Position().Line)
	assert.Equal(t, 6, syn.Position().Column)
}
