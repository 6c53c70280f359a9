// Package sanitize repairs malformed JSON emitted by LLM backends.
//
// The package is a layered repair system: a string-context scanner
// (scanner.go), a set of replacement rules targeting empirically observed
// corruption signatures (rules*.go), and a pipeline that runs sanitizer
// stages in a fixed order to a bounded fixed point (pipeline.go).
//
// Everything here is a pure transformation over in-memory strings. Stages
// never log and never perform I/O; every repair action is returned to the
// caller as a diagnostic string so the decision layer owns the audit trail.
package sanitize

// Config holds the tunable thresholds for the repair rules.
//
// The numeric values are empirically tuned against a corpus of real LLM
// failures rather than derived from first principles. Treat them as
// calibration knobs: override them per request when a backend shows a
// different failure texture.
type Config struct {
	// RepetitionThreshold is the minimum number of consecutive repeats of
	// a token before the runaway-repetition rule fires. Below this the
	// content is assumed intentional and passes through untouched.
	RepetitionThreshold int

	// KeptRepetitions is how many repeats survive truncation, so the
	// downstream consumer can still see what the model was looping on.
	KeptRepetitions int

	// ArrayLookback bounds the backward scan used to decide whether an
	// offset sits inside an array. A window, not a full parse.
	ArrayLookback int

	// PropertyContextWindow bounds how far back from a suspect property
	// name the repair rules scan for corroborating member structure (an
	// object opener or separator). Nothing inside the window means the
	// name is left alone.
	PropertyContextWindow int

	// MaxStructurePasses caps fixed-point loops in the structural stages
	// (meta-field removal, separator repair, commentary excision).
	MaxStructurePasses int

	// MaxStringPasses caps fixed-point loops in the string-corruption
	// stages. Higher than MaxStructurePasses because a single buffer can
	// carry many independent runaway runs.
	MaxStringPasses int

	// MaxDepth bounds nesting considered by the balanced scans. Content
	// deeper than this is treated as corrupt rather than traversed.
	MaxDepth int

	// TruncationSafetyBuffer caps how many trailing bytes a truncation
	// rule may discard as decode garbage. A longer unexplained tail makes
	// the rule decline rather than delete data it cannot account for.
	TruncationSafetyBuffer int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		RepetitionThreshold:    10,
		KeptRepetitions:        3,
		ArrayLookback:          500,
		PropertyContextWindow:  150,
		MaxStructurePasses:     50,
		MaxStringPasses:        80,
		MaxDepth:               64,
		TruncationSafetyBuffer: 24,
	}
}

// normalized fills zero fields with defaults so partial overrides from a
// request config cannot disable the safety ceilings.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.RepetitionThreshold <= 0 {
		c.RepetitionThreshold = def.RepetitionThreshold
	}
	if c.KeptRepetitions <= 0 {
		c.KeptRepetitions = def.KeptRepetitions
	}
	if c.ArrayLookback <= 0 {
		c.ArrayLookback = def.ArrayLookback
	}
	if c.PropertyContextWindow <= 0 {
		c.PropertyContextWindow = def.PropertyContextWindow
	}
	if c.MaxStructurePasses <= 0 {
		c.MaxStructurePasses = def.MaxStructurePasses
	}
	if c.MaxStringPasses <= 0 {
		c.MaxStringPasses = def.MaxStringPasses
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.TruncationSafetyBuffer <= 0 {
		c.TruncationSafetyBuffer = def.TruncationSafetyBuffer
	}
	return c
}
