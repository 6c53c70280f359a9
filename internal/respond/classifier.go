package respond

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remend/internal/jsonval"
	"remend/internal/sanitize"
	"remend/internal/schema"
)

// Recorder captures unrecoverable parse failures for forensic analysis.
// Implementations must be safe for concurrent use; errors they return are
// logged and dropped, never fed back into the classification decision.
type Recorder interface {
	RecordParseFailure(ctx context.Context, parseErr error, rawContent string, rc ResponseContext, diagnostics []string) error
}

// Classifier turns raw completions into terminal FunctionResponses. A
// Classifier is immutable after construction and safe for concurrent use;
// every Classify call owns its own diagnostics trail.
type Classifier struct {
	pipeline *sanitize.Pipeline
	recorder Recorder
	logger   *zap.Logger
}

// NewClassifier builds a classifier. recorder may be nil (failures are
// then only logged); logger may be nil for a silent classifier.
func NewClassifier(defaults sanitize.Config, recorder Recorder, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		pipeline: sanitize.NewPipeline(defaults),
		recorder: recorder,
		logger:   logger,
	}
}

// Classify runs the state machine for one completion attempt:
//
//	RECEIVED → purpose check → embeddings pass-through
//	                         → completions → TEXT: non-empty check
//	                                       → JSON: sanitize → parse →
//	                                         normalize → validate
//
// The returned error is non-nil only for configuration mistakes (JSON
// without a schema, TEXT with one); those signal a caller defect and are
// raised synchronously with no partial response. Every content-level
// problem is reported as data on the INVALID response instead.
func (c *Classifier) Classify(ctx context.Context, raw string, rc ResponseContext, req RequestConfig) (*FunctionResponse, error) {
	if rc.AttemptID == "" {
		rc.AttemptID = uuid.NewString()
	}

	if req.Purpose == PurposeEmbeddings {
		// Embedding payloads are vendor-shaped binary/vector data; no
		// JSON contract applies.
		return &FunctionResponse{Context: rc, Status: StatusCompleted, Generated: raw}, nil
	}

	switch req.OutputFormat {
	case FormatText:
		if req.Schema != nil {
			return nil, &ConfigError{Reason: "jsonSchema provided for TEXT output format"}
		}
		return c.classifyText(raw, rc), nil
	case FormatJSON:
		if req.Schema == nil {
			return nil, &ConfigError{Reason: "JSON output format requires a jsonSchema"}
		}
		return c.classifyJSON(ctx, raw, rc, req), nil
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unrecognized output format %q", req.OutputFormat)}
	}
}

func (c *Classifier) classifyText(raw string, rc ResponseContext) *FunctionResponse {
	if strings.TrimSpace(raw) == "" {
		return &FunctionResponse{
			Context: rc,
			Status:  StatusInvalid,
			Error:   "empty TEXT response",
		}
	}
	return &FunctionResponse{Context: rc, Status: StatusCompleted, Generated: raw}
}

func (c *Classifier) classifyJSON(ctx context.Context, raw string, rc ResponseContext, req RequestConfig) *FunctionResponse {
	pipeline := c.pipeline
	if req.Sanitizer != nil {
		pipeline = sanitize.NewPipeline(*req.Sanitizer)
	}
	content, steps, _ := pipeline.Run(raw)

	repairs := collectDiagnostics(steps)

	parsed, err := jsonval.Decode(content)
	if err != nil {
		return c.invalid(ctx, raw, rc, steps, repairs,
			fmt.Errorf("LLM output could not be parsed: %w", err))
	}

	opts := schema.DefaultNormalizeOptions()
	if req.Normalize != nil {
		opts = *req.Normalize
	}
	normalized, normDiags := schema.Normalize(parsed, req.Schema, opts)
	repairs = append(repairs, normDiags...)

	validated, issues := req.Schema.Validate(normalized)
	if len(issues) > 0 {
		return c.invalid(ctx, raw, rc, steps, repairs,
			fmt.Errorf("LLM output could not be parsed: schema validation failed: %s", schema.FormatIssues(issues)))
	}

	c.logger.Debug("completion classified",
		zap.String("attempt_id", rc.AttemptID),
		zap.String("model_key", rc.ModelKey),
		zap.Int("repairs", len(repairs)))

	return &FunctionResponse{
		Context:       rc,
		Status:        StatusCompleted,
		Generated:     validated,
		Repairs:       repairs,
		PipelineSteps: steps,
	}
}

// invalid builds the terminal INVALID response and records the failure
// exactly once. Recorder errors must not escape: forensic capture is a
// side effect, not a gate.
func (c *Classifier) invalid(ctx context.Context, raw string, rc ResponseContext, steps []sanitize.Step, repairs []string, cause error) *FunctionResponse {
	c.logger.Warn("completion rejected",
		zap.String("attempt_id", rc.AttemptID),
		zap.String("model_key", rc.ModelKey),
		zap.Error(cause))

	if c.recorder != nil {
		if err := c.recorder.RecordParseFailure(ctx, cause, raw, rc, repairs); err != nil {
			c.logger.Warn("parse-failure recording failed", zap.Error(err))
		}
	}

	return &FunctionResponse{
		Context:       rc,
		Status:        StatusInvalid,
		Error:         cause.Error(),
		Repairs:       repairs,
		PipelineSteps: steps,
	}
}

func collectDiagnostics(steps []sanitize.Step) []string {
	var out []string
	for _, s := range steps {
		out = append(out, s.Diagnostics...)
	}
	return out
}
