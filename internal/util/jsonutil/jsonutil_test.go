package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalFlexRawNewlines(t *testing.T) {
	raw := []byte("{\"content\": \"def add(a, b):\n\treturn a + b\"}")
	var out map[string]any
	require.NoError(t, UnmarshalFlex(raw, &out))
	assert.Equal(t, "def add(a, b):\n\treturn a + b", out["content"])
}

func TestUnmarshalFlexQuotedDocument(t *testing.T) {
	raw := []byte(`"{\"filename\": \"main.py\"}"`)
	var out map[string]any
	require.NoError(t, UnmarshalFlex(raw, &out))
	assert.Equal(t, "main.py", out["filename"])
}

func TestUnmarshalFlexEmpty(t *testing.T) {
	var out map[string]any
	assert.Error(t, UnmarshalFlex([]byte("   "), &out))
}

func TestDecodeLooseString(t *testing.T) {
	assert.Equal(t, "a\nb \"q\"", DecodeLooseString(`a\nb \"q\"`))
	assert.Equal(t, "line1\nline2", DecodeLooseString("line1\nline2"))
	assert.Equal(t, `bad \x escape`, DecodeLooseString(`bad \x escape`))
	assert.Equal(t, "print(\"hi\")\n", DecodeLooseString(`print("hi")\n`))
}

func TestFirstObject(t *testing.T) {
	m, ok := FirstObject([]any{"x", map[string]any{"a": 1.0}})
	require.True(t, ok)
	assert.Equal(t, 1.0, m["a"])

	_, ok = FirstObject("nope")
	assert.False(t, ok)
}

func TestBalancedSpan(t *testing.T) {
	s := `{"a": "}", "b": [1, {"c": 2}]} trailing`
	end := BalancedSpan(s, 0)
	require.Greater(t, end, 0)
	assert.Equal(t, `{"a": "}", "b": [1, {"c": 2}]}`, s[:end])
	assert.Equal(t, -1, BalancedSpan(`{"open": 1`, 0))
	assert.Equal(t, -1, BalancedSpan("x", 0))
}

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"c": "a < b && c > d"})
	require.NoError(t, err)
	assert.Equal(t, `{"c":"a < b && c > d"}`, string(b))
}
