package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.RepetitionThreshold)
	assert.Equal(t, 3, cfg.KeptRepetitions)
	assert.Equal(t, 500, cfg.ArrayLookback)
	assert.Equal(t, 150, cfg.PropertyContextWindow)
	assert.Equal(t, 50, cfg.MaxStructurePasses)
	assert.Equal(t, 80, cfg.MaxStringPasses)
	assert.Equal(t, 64, cfg.MaxDepth)
	assert.Equal(t, 24, cfg.TruncationSafetyBuffer)
}

func TestConfigNormalizedFillsZeroFields(t *testing.T) {
	cfg := Config{RepetitionThreshold: 4}.normalized()
	assert.Equal(t, 4, cfg.RepetitionThreshold, "explicit overrides survive")
	assert.Equal(t, DefaultConfig().MaxStringPasses, cfg.MaxStringPasses)
	assert.Equal(t, DefaultConfig().ArrayLookback, cfg.ArrayLookback)
}
