package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	v := &Object{Fields: []Field{
		{Key: "name", Value: String(`say "hi"`)},
		{Key: "limit", Value: Number("100")},
		{Key: "live", Value: Bool(false)},
		{Key: "note", Value: Null{}},
		{Key: "tags", Value: Array{String("a"), Number("2")}},
	}}

	assert.Equal(t, `{"name":"say \"hi\"","limit":100,"live":false,"note":null,"tags":["a",2]}`, JSON(v))
}

func TestQuoteJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`has "quotes"`, `"has \"quotes\""`},
		{`back\slash`, `"back\\slash"`},
		{"line\nbreak", `"line\nbreak"`},
		{"tab\there", `"tab\there"`},
		{"ctrl\x01char", `"ctrlchar"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteJSON(tt.in))
	}
}

func TestObject_GetSetKeys(t *testing.T) {
	obj := &Object{}
	obj.Set("b", Number("1"))
	obj.Set("a", Number("2"))
	obj.Set("b", Number("3"))

	assert.Equal(t, []string{"b", "a"}, obj.Keys(), "Set replaces in place, order survives")

	b, ok := obj.Get("b")
	require.True(t, ok)
	assert.Equal(t, Number("3"), b)

	_, ok = obj.Get("missing")
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "string", String("x").Kind().String())
	assert.Equal(t, "number", Number("1").Kind().String())
	assert.Equal(t, "bool", Bool(true).Kind().String())
	assert.Equal(t, "null", Null{}.Kind().String())
	assert.Equal(t, "object", (&Object{}).Kind().String())
	assert.Equal(t, "array", Array{}.Kind().String())
}

func TestFromAny(t *testing.T) {
	v := FromAny(map[string]any{
		"b_str":   "text",
		"a_int":   42,
		"c_float": 2.5,
		"d_whole": 7.0,
		"e_bool":  true,
		"f_nil":   nil,
		"g_list":  []any{"x", 1},
	})

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"a_int", "b_str", "c_float", "d_whole", "e_bool", "f_nil", "g_list"},
		obj.Keys(), "map keys sort for determinism")

	aInt, _ := obj.Get("a_int")
	assert.Equal(t, Number("42"), aInt)
	cFloat, _ := obj.Get("c_float")
	assert.Equal(t, Number("2.5"), cFloat)
	dWhole, _ := obj.Get("d_whole")
	assert.Equal(t, Number("7"), dWhole, "whole floats render without a fraction")
	fNil, _ := obj.Get("f_nil")
	assert.Equal(t, Null{}, fNil)

	gList, _ := obj.Get("g_list")
	arr, ok := gList.(Array)
	require.True(t, ok)
	assert.Equal(t, Array{String("x"), Number("1")}, arr)
}

func TestToAny(t *testing.T) {
	obj := &Object{Fields: []Field{
		{Key: "path", Value: String("data.csv")},
		{Key: "count", Value: Number("3")},
		{Key: "live", Value: Bool(true)},
		{Key: "note", Value: Null{}},
		{Key: "xs", Value: Array{Number("1.5")}},
	}}

	got, ok := ToAny(obj).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "data.csv", got["path"])
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, true, got["live"])
	assert.Nil(t, got["note"])
	assert.Equal(t, []any{1.5}, got["xs"])
}

func TestNumberFloat(t *testing.T) {
	f, err := Number("2.5").Float()
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	_, err = Number("${n}").Float()
	assert.Error(t, err)
}
