// Package llm invokes completion backends and orchestrates failover
// across model candidates. The repair/classification core never imports
// this package; it only ever sees the raw completion strings produced
// here.
package llm

import "context"

// Client is the minimal interface the orchestrator needs from a backend.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder generates embedding vectors. Separate from Client because most
// candidates are completion-only.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
