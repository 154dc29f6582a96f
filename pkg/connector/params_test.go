package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/pkg/value"
)

func TestDecodeParams(t *testing.T) {
	type target struct {
		Path    string            `mapstructure:"path"`
		Port    int               `mapstructure:"port"`
		Nested  map[string]string `mapstructure:"nested"`
		Tags    []string          `mapstructure:"tags"`
		Enabled bool              `mapstructure:"enabled"`
	}

	obj := &value.Object{}
	obj.Set("path", value.String("data/events.csv"))
	obj.Set("port", value.Number("5433"))
	obj.Set("enabled", value.Bool(true))
	obj.Set("tags", value.Array{value.String("a"), value.String("b")})
	nested := &value.Object{}
	nested.Set("memory_limit", value.String("4GB"))
	obj.Set("nested", nested)

	var got target
	require.NoError(t, DecodeParams(obj, &got))
	assert.Equal(t, "data/events.csv", got.Path)
	assert.Equal(t, 5433, got.Port, "numbers decode into ints")
	assert.True(t, got.Enabled)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, map[string]string{"memory_limit": "4GB"}, got.Nested)
}

func TestDecodeParams_NilObject(t *testing.T) {
	type target struct {
		Path string `mapstructure:"path"`
	}
	got := target{Path: "default.csv"}
	require.NoError(t, DecodeParams(nil, &got))
	assert.Equal(t, "default.csv", got.Path, "nil params keep defaults")
}

func TestDecodeParams_TypeMismatch(t *testing.T) {
	type target struct {
		Port int `mapstructure:"port"`
	}
	obj := &value.Object{}
	obj.Set("port", value.Array{value.Number("1")})

	var got target
	err := DecodeParams(obj, &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")
}
