package extract

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral_PythonRepr(t *testing.T) {
	v, err := ParseLiteral(`{'id': '6789', 'name': 'stockguru', 'verified': True, 'fans': 1500, 'ratio': 0.5, 'bio': None, 'tags': ('a', "b",), 'nested': {'x': [1, 2]}}`)
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.Equal(t, "6789", m["id"])
	assert.Equal(t, true, m["verified"])
	assert.Equal(t, int64(1500), m["fans"])
	assert.Equal(t, 0.5, m["ratio"])
	assert.Nil(t, m["bio"])
	assert.Equal(t, []any{"a", "b"}, m["tags"])
	assert.Equal(t, []any{int64(1), int64(2)}, m["nested"].(map[string]any)["x"])
}

func TestParseLiteral_JSON(t *testing.T) {
	v, err := ParseLiteral(`[{"nickName": "Jane \"J\" Doe", "emoji": "🚀", "ok": false, "n": null}]`)
	require.NoError(t, err)

	m := v.([]any)[0].(map[string]any)
	assert.Equal(t, `Jane "J" Doe`, m["nickName"])
	assert.Equal(t, "🚀", m["emoji"])
	assert.Equal(t, false, m["ok"])
	assert.Nil(t, m["n"])
}

func TestParseLiteral_Escapes(t *testing.T) {
	v, err := ParseLiteral(`'it\'s a\nline \x41'`)
	require.NoError(t, err)
	assert.Equal(t, "it's a\nline A", v)
}

func TestParseLiteral_LargeIntegerKeepsDigits(t *testing.T) {
	v, err := ParseLiteral(`{'id': 18446744073709551615}`)
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", v.(map[string]any)["id"])
}

func TestParseLiteral_NaN(t *testing.T) {
	v, err := ParseLiteral(`nan`)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.(float64)))
}

func TestParseLiteral_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"{",
		"{'a' 1}",
		"[1, 2",
		"'unterminated",
		"{'a': 1} trailing",
		"undefined",
		"--",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseLiteral(in)
			assert.Error(t, err)
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "None", ValueString(nil))
	assert.Equal(t, "True", ValueString(true))
	assert.Equal(t, "42", ValueString(int64(42)))
	assert.Equal(t, "1.5", ValueString(1.5))
	assert.Equal(t, "nan", ValueString(math.NaN()))
}
