// Package respond classifies raw LLM completions into terminal outcomes.
// It runs the sanitizer pipeline, the structural parse, normalization and
// schema validation, and reduces the result to COMPLETED or INVALID with
// a full repair audit trail. Configuration mistakes are the only thing
// that comes back on the error channel; everything content-related is
// data.
package respond

import (
	"remend/internal/sanitize"
	"remend/internal/schema"
)

// Purpose selects the top-level classification path.
type Purpose string

const (
	PurposeCompletions Purpose = "COMPLETIONS"
	PurposeEmbeddings  Purpose = "EMBEDDINGS"
)

// OutputFormat selects the completions sub-path.
type OutputFormat string

const (
	FormatJSON OutputFormat = "JSON"
	FormatText OutputFormat = "TEXT"
)

// Status is a terminal classification state.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusInvalid   Status = "INVALID"
)

// ResponseContext is the correlation identity of one completion attempt.
// Opaque to the classifier; it flows through to the response and the
// forensic store untouched.
type ResponseContext struct {
	RequestID string `json:"request_id"`
	AttemptID string `json:"attempt_id"`
	SessionID string `json:"session_id,omitempty"`
	ModelKey  string `json:"model_key"`
}

// RequestConfig carries the recognized per-request options.
type RequestConfig struct {
	Purpose      Purpose
	OutputFormat OutputFormat

	// Schema is required for the JSON path and forbidden for TEXT.
	Schema *schema.Descriptor

	// Sanitizer overrides the pipeline thresholds for this request. Nil
	// means the classifier's defaults.
	Sanitizer *sanitize.Config

	// Normalize overrides the post-parse transforms. Nil means all
	// enabled.
	Normalize *schema.NormalizeOptions
}

// FunctionResponse is the terminal outcome of one completion attempt.
type FunctionResponse struct {
	Context ResponseContext `json:"context"`
	Status  Status          `json:"status"`

	// Generated holds the accepted payload: a jsonval.Value on the JSON
	// path, a string on the TEXT path, the raw content for embeddings.
	Generated any `json:"generated,omitempty"`

	// Error describes why the response is INVALID. Empty for COMPLETED.
	Error string `json:"error,omitempty"`

	// Repairs lists every repair diagnostic in order. Telemetry only.
	Repairs []string `json:"repairs,omitempty"`

	// PipelineSteps is the per-stage trace, retained even on failure.
	PipelineSteps []sanitize.Step `json:"pipeline_steps,omitempty"`
}

// Repaired reports whether any sanitizer stage changed the content.
func (r *FunctionResponse) Repaired() bool {
	for _, s := range r.PipelineSteps {
		if s.Changed {
			return true
		}
	}
	return false
}
