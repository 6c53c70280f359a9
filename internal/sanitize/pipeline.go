package sanitize

import (
	"encoding/json"
	"fmt"
)

// Sanitizer is one stage of the repair pipeline: a pure function from raw
// text to repaired text plus a change flag and diagnostics.
type Sanitizer interface {
	Name() string
	Sanitize(content string) Result
}

// ruleSanitizer adapts an ordered ReplacementRule list into a stage. The
// rules run to a fixed point bounded by maxPasses.
type ruleSanitizer struct {
	name      string
	rules     []ReplacementRule
	cfg       Config
	maxPasses func(Config) int
}

func (s ruleSanitizer) Name() string { return s.name }

func (s ruleSanitizer) Sanitize(content string) Result {
	out, diags, changed := applyRules(content, s.rules, s.cfg, s.maxPasses(s.cfg))
	if !changed {
		return unchanged(content)
	}
	return Result{
		Content:     out,
		Changed:     true,
		Description: fmt.Sprintf("applied %d separator repair(s)", len(diags)),
		Diagnostics: diags,
	}
}

// Pipeline sequences sanitizer stages in a fixed declared order. Generic
// structural fixes run before the string-corruption rules, which depend
// on the structure around them already being sound; the structure close
// runs last as a safety net. The stage list is immutable once built, with
// no ambient registry and no shared mutable state, so concurrent Run calls
// need no locking.
type Pipeline struct {
	stages []Sanitizer
	cfg    Config
}

// NewPipeline builds the standard pipeline for the given thresholds.
func NewPipeline(cfg Config) *Pipeline {
	cfg = cfg.normalized()
	return NewPipelineWithStages(cfg,
		payloadSanitizer{cfg},
		metaFieldSanitizer{cfg},
		ruleSanitizer{
			name:      "separators",
			rules:     separatorRules(),
			cfg:       cfg,
			maxPasses: func(c Config) int { return c.MaxStructurePasses },
		},
		commentarySanitizer{cfg},
		repetitionSanitizer{cfg},
		embeddedJSONSanitizer{cfg},
		closeSanitizer{cfg},
	)
}

// NewPipelineWithStages builds a pipeline from an explicit stage
// sequence. Intended for tests and callers with a custom rule set.
func NewPipelineWithStages(cfg Config, stages ...Sanitizer) *Pipeline {
	return &Pipeline{stages: stages, cfg: cfg.normalized()}
}

// Run feeds the buffer through every stage unconditionally, recording one
// Step per stage. The returned flag reports whether any stage changed the
// content. Run never fails: if the result still does not parse, that is
// the caller's decision to make, with the full trail in hand.
func (p *Pipeline) Run(content string) (string, []Step, bool) {
	steps := make([]Step, 0, len(p.stages))
	repaired := false
	for _, stage := range p.stages {
		res := stage.Sanitize(content)
		steps = append(steps, Step{
			Sanitizer:   stage.Name(),
			Changed:     res.Changed,
			Diagnostics: res.Diagnostics,
		})
		if res.Changed {
			repaired = true
			content = res.Content
		}
	}
	return content, steps, repaired
}

// Repair runs the pipeline and reports whether the result is structurally
// valid JSON. Convenience for callers that do not parse the result
// themselves.
func (p *Pipeline) Repair(content string) (string, []Step, error) {
	out, steps, _ := p.Run(content)
	if !json.Valid([]byte(out)) {
		return out, steps, fmt.Errorf("content still malformed after %d sanitizer stage(s)", len(p.stages))
	}
	return out, steps, nil
}

// Config returns the thresholds the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }
