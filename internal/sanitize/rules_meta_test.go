package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveFirstMetaField(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unquoted with nested object value",
			input: `{"a":1, extra_thoughts: {"x": "y"}, "b":2}`,
			want:  `{"a":1, "b":2}`,
		},
		{
			name:  "quoted in first position consumes following comma",
			input: `{"extra_text": "junk", "a": 1`,
			want:  `{ "a": 1`,
		},
		{
			name:  "scalar value",
			input: `{"a": 1, extra_text: 42}`,
			want:  `{"a": 1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, diag, ok := removeFirstMetaField(tt.input, cfg)
			require.True(t, ok)
			assert.Equal(t, tt.want, out)
			assert.NotEmpty(t, diag)
		})
	}
}

func TestRemoveFirstMetaFieldDeclines(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		input string
	}{
		{"name inside string value", `{"note": "blah extra_text: x", "b":`},
		{"string value starting with the name", `{"note": "extra_text: is fine", "b":`},
		{"no meta fields", `{"a": 1, "b": 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, ok := removeFirstMetaField(tt.input, cfg)
			assert.False(t, ok)
			assert.Equal(t, tt.input, out)
		})
	}
}

func TestScanValueEnd(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		content string
		start   int
		want    string
		ok      bool
	}{
		{"object value", ` {"x": [1, 2]}, "b": 1`, 0, `{"x": [1, 2]}`, true},
		{"string value", ` "hello", 1`, 0, `"hello"`, true},
		{"scalar runs to delimiter", ` 42, "b"`, 0, `42`, true},
		{"unterminated object", ` {"x": 1`, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, ok := scanValueEnd(tt.content, tt.start, cfg)
			require.Equal(t, tt.ok, ok)
			if ok {
				got := tt.content[1:end]
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScanValueEndDepthBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 3

	_, ok := scanValueEnd(`[[[[1]]]]`, 0, cfg)
	assert.False(t, ok, "nesting beyond the depth bound must be declined")
}
