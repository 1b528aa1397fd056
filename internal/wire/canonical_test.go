package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"float with integral value", 1.0, "1"},
		{"fraction", 3.5, "3.5"},
		{"small float", 0.000001, "0.000001"},
		{"tiny float", 1.5e-7, "1.5e-7"},
		{"huge float", 1e21, "1e+21"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"struct", struct {
			B int    `json:"b"`
			A string `json:"a"`
		}{B: 1, A: "x"}, `{"a":"x","b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := map[string]any{
		"z": map[string]any{"b": 1, "a": 2},
		"a": 3,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair 0xD800 0xDC00, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed U+00E9.
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalRejectsUnrepresentable(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"c": make(chan int)})
	assert.Error(t, err)
}

func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint("k", map[string]any{"x": 1, "y": []any{"a", "b"}})
	require.NoError(t, err)
	b, err := Fingerprint("k", map[string]any{"y": []any{"a", "b"}, "x": 1.0})
	require.NoError(t, err)

	assert.Equal(t, a, b, "key order and number spelling must not change the fingerprint")
	assert.Len(t, a, 32)
}

func TestFingerprintSensitivity(t *testing.T) {
	base, err := Fingerprint("k", map[string]any{"x": 1})
	require.NoError(t, err)

	otherID, err := Fingerprint("k2", map[string]any{"x": 1})
	require.NoError(t, err)
	otherData, err := Fingerprint("k", map[string]any{"x": 2})
	require.NoError(t, err)

	assert.NotEqual(t, base, otherID)
	assert.NotEqual(t, base, otherData)
}

func TestFingerprintMatchesEnvelope(t *testing.T) {
	data := Data{"x": 1}
	b, err := EncodeWrite("k", data)
	require.NoError(t, err)
	env, err := ParseEnvelope(b)
	require.NoError(t, err)

	expected, err := Fingerprint("k", data)
	require.NoError(t, err)
	assert.Equal(t, expected, env.Fingerprint)
}
