package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRun(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("below threshold", func(t *testing.T) {
		_, ok := findRun(strings.Repeat("}} ", 6), cfg)
		assert.False(t, ok)
	})

	t.Run("at threshold", func(t *testing.T) {
		run, ok := findRun(strings.Repeat("ab", 10), cfg)
		require.True(t, ok)
		assert.Equal(t, "ab", run.unit)
		assert.Equal(t, 10, run.count)
		assert.Equal(t, 0, run.start)
		assert.Equal(t, 20, run.end)
	})

	t.Run("smallest period wins", func(t *testing.T) {
		run, ok := findRun("xy"+strings.Repeat("a", 30), cfg)
		require.True(t, ok)
		assert.Equal(t, "a", run.unit)
		assert.Equal(t, 2, run.start)
		assert.Equal(t, 30, run.count)
	})

	t.Run("whitespace-only unit never qualifies", func(t *testing.T) {
		_, ok := findRun(strings.Repeat(" ", 100), cfg)
		assert.False(t, ok)
	})
}

func TestTruncateFirstRunConsumesSpuriousQuote(t *testing.T) {
	cfg := DefaultConfig()

	content := `{"name": "x", "purpose": "do thing"` + strings.Repeat(" }", 12)
	out, diag, ok := truncateFirstRun(content, cfg)
	require.True(t, ok)
	assert.Equal(t, `{"name": "x", "purpose": "do thing } } }..."}`, out)
	assert.Contains(t, diag, "12 repeats")
}

func TestTruncateFirstRunInsideString(t *testing.T) {
	cfg := DefaultConfig()

	content := `{"k": "` + strings.Repeat("ha", 20)
	out, _, ok := truncateFirstRun(content, cfg)
	require.True(t, ok)
	assert.Equal(t, `{"k": "hahaha..."}`, out)
}

func TestTruncateFirstRunSafetyBuffer(t *testing.T) {
	tail := " and then the model rambled on for a good while longer"
	content := `{"k": "` + strings.Repeat("na", 12) + tail

	// The tail is longer than the default buffer: not the rule's to delete.
	cfg := DefaultConfig()
	_, _, ok := truncateFirstRun(content, cfg)
	assert.False(t, ok)

	cfg.TruncationSafetyBuffer = 100
	out, _, ok := truncateFirstRun(content, cfg)
	require.True(t, ok)
	assert.Equal(t, `{"k": "nanana..."}`, out)
}

func TestTruncateFirstRunKeepsTrailingStructure(t *testing.T) {
	cfg := DefaultConfig()

	content := `{"k": "` + strings.Repeat("na", 15) + `", "b": 2}`
	out, _, ok := truncateFirstRun(content, cfg)
	require.True(t, ok)
	assert.Equal(t, `{"k": "nanana...", "b": 2}`, out)
}

func TestEmbeddedLeakEscapedForm(t *testing.T) {
	content := `{"summary": "done\", \"status\": \"ok\"", "b": 2`
	out, diag, ok := truncateFirstLeak(content)
	require.True(t, ok)
	assert.Equal(t, `{"summary": "done", "b": 2`, out)
	assert.Contains(t, diag, "embedded-JSON")
}

func TestEmbeddedLeakNewlineForm(t *testing.T) {
	content := "{\"a\": \"unterminated\n\"b\": 2}"
	out, _, ok := truncateFirstLeak(content)
	require.True(t, ok)
	assert.Equal(t, `{"a": "unterminated", "b": 2}`, out)
}

func TestEmbeddedLeakSignatureOutsideStringIgnored(t *testing.T) {
	// The newline-then-property shape is how ordinary pretty-printed JSON
	// looks; only the in-string occurrence is a leak.
	content := "{\"a\": 1,\n\"b\": 2}"
	_, _, ok := truncateFirstLeak(content)
	assert.False(t, ok)
}
