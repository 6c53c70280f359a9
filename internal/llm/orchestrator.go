package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"remend/internal/respond"
)

// Candidate pairs a logical model key with the client that serves it.
type Candidate struct {
	ModelKey string
	Client   Client
}

// Orchestrator runs a completion request against an ordered candidate
// list, re-classifying each attempt. A candidate whose output classifies
// INVALID is abandoned and the next one tried; configuration errors abort
// the whole request immediately since retrying cannot fix the caller.
type Orchestrator struct {
	candidates []Candidate
	classifier *respond.Classifier
	logger     *zap.Logger
}

// NewOrchestrator builds an orchestrator over the candidate list, primary
// first. logger may be nil.
func NewOrchestrator(candidates []Candidate, classifier *respond.Classifier, logger *zap.Logger) (*Orchestrator, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("at least one candidate is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{candidates: candidates, classifier: classifier, logger: logger}, nil
}

// Request is one logical completion request.
type Request struct {
	Context respond.ResponseContext
	Config  respond.RequestConfig
	System  string
	Prompt  string
}

// Complete tries each candidate in order until one produces a COMPLETED
// response. The final candidate's response is returned even when INVALID
// so the caller sees the last failure's diagnostics.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (*respond.FunctionResponse, error) {
	var last *respond.FunctionResponse
	for i, cand := range o.candidates {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		rc := req.Context
		rc.ModelKey = cand.ModelKey
		rc.AttemptID = "" // fresh attempt per candidate

		raw, err := o.generate(ctx, cand.Client, req)
		if err != nil {
			o.logger.Warn("candidate completion failed",
				zap.String("model_key", cand.ModelKey),
				zap.Int("candidate", i),
				zap.Error(err))
			continue
		}

		resp, err := o.classifier.Classify(ctx, raw, rc, req.Config)
		if err != nil {
			// Config errors are caller defects; no candidate can repair
			// them.
			return nil, err
		}
		last = resp
		if resp.Status == respond.StatusCompleted {
			return resp, nil
		}
		o.logger.Info("candidate output rejected, failing over",
			zap.String("model_key", cand.ModelKey),
			zap.Int("candidate", i),
			zap.String("error", resp.Error))
	}
	if last == nil {
		return nil, fmt.Errorf("all %d candidates failed to complete", len(o.candidates))
	}
	return last, nil
}

func (o *Orchestrator) generate(ctx context.Context, client Client, req Request) (string, error) {
	if req.System != "" {
		return client.CompleteWithSystem(ctx, req.System, req.Prompt)
	}
	return client.Complete(ctx, req.Prompt)
}

// ClassifyBatch classifies already-generated raw payloads concurrently.
// Results hold the same indexes as the inputs. The first configuration
// error cancels the batch.
func (o *Orchestrator) ClassifyBatch(ctx context.Context, raws []string, rc respond.ResponseContext, cfg respond.RequestConfig, parallelism int) ([]*respond.FunctionResponse, error) {
	if parallelism <= 0 {
		parallelism = 4
	}
	results := make([]*respond.FunctionResponse, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, raw := range raws {
		g.Go(func() error {
			resp, err := o.classifier.Classify(gctx, raw, rc, cfg)
			if err != nil {
				return err
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
