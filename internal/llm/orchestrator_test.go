package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remend/internal/respond"
	"remend/internal/sanitize"
	"remend/internal/schema"
)

type scriptedClient struct {
	output string
	err    error
	calls  int
}

func (c *scriptedClient) Complete(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.output, c.err
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, _, prompt string) (string, error) {
	return c.Complete(ctx, prompt)
}

func newTestClassifier() *respond.Classifier {
	return respond.NewClassifier(sanitize.DefaultConfig(), nil, nil)
}

func jsonConfig() respond.RequestConfig {
	return respond.RequestConfig{
		Purpose:      respond.PurposeCompletions,
		OutputFormat: respond.FormatJSON,
		Schema: &schema.Descriptor{
			Type: schema.TypeObject,
			Properties: map[string]*schema.Descriptor{
				"answer": {Type: schema.TypeString},
			},
			Required: []string{"answer"},
		},
	}
}

func TestOrchestratorFirstCandidateWins(t *testing.T) {
	primary := &scriptedClient{output: `{"answer": "yes"}`}
	backup := &scriptedClient{output: `{"answer": "no"}`}
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "primary", Client: primary},
		{ModelKey: "backup", Client: backup},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	resp, err := o.Complete(context.Background(), Request{Config: jsonConfig(), Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, respond.StatusCompleted, resp.Status)
	assert.Equal(t, "primary", resp.Context.ModelKey)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, backup.calls, "backup never consulted when the primary completes")
}

func TestOrchestratorFailsOverOnInvalidOutput(t *testing.T) {
	primary := &scriptedClient{output: "total garbage @@@@"}
	backup := &scriptedClient{output: `{"answer": "rescued"}`}
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "primary", Client: primary},
		{ModelKey: "backup", Client: backup},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	resp, err := o.Complete(context.Background(), Request{Config: jsonConfig(), Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, respond.StatusCompleted, resp.Status)
	assert.Equal(t, "backup", resp.Context.ModelKey)
	assert.Equal(t, 1, primary.calls)
}

func TestOrchestratorFailsOverOnTransportError(t *testing.T) {
	primary := &scriptedClient{err: errors.New("rate limited")}
	backup := &scriptedClient{output: `{"answer": "ok"}`}
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "primary", Client: primary},
		{ModelKey: "backup", Client: backup},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	resp, err := o.Complete(context.Background(), Request{Config: jsonConfig(), Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "backup", resp.Context.ModelKey)
}

func TestOrchestratorReturnsLastInvalidResponse(t *testing.T) {
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "a", Client: &scriptedClient{output: "@@@@"}},
		{ModelKey: "b", Client: &scriptedClient{output: "!!!!"}},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	resp, err := o.Complete(context.Background(), Request{Config: jsonConfig(), Prompt: "q"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, respond.StatusInvalid, resp.Status)
	assert.Equal(t, "b", resp.Context.ModelKey, "the last failure's diagnostics are the ones worth seeing")
}

func TestOrchestratorConfigErrorAbortsImmediately(t *testing.T) {
	primary := &scriptedClient{output: `{"answer": "yes"}`}
	backup := &scriptedClient{output: `{"answer": "yes"}`}
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "primary", Client: primary},
		{ModelKey: "backup", Client: backup},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	badConfig := respond.RequestConfig{
		Purpose:      respond.PurposeCompletions,
		OutputFormat: respond.FormatJSON, // no schema
	}
	resp, err := o.Complete(context.Background(), Request{Config: badConfig, Prompt: "q"})
	require.Error(t, err)
	assert.True(t, respond.IsConfigError(err))
	assert.Nil(t, resp)
	assert.Equal(t, 0, backup.calls, "retrying a caller defect cannot help")
}

func TestOrchestratorAllTransportsFail(t *testing.T) {
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "a", Client: &scriptedClient{err: errors.New("down")}},
		{ModelKey: "b", Client: &scriptedClient{err: errors.New("down")}},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	_, err = o.Complete(context.Background(), Request{Config: jsonConfig(), Prompt: "q"})
	assert.Error(t, err)
}

func TestOrchestratorRequiresCandidates(t *testing.T) {
	_, err := NewOrchestrator(nil, newTestClassifier(), nil)
	assert.Error(t, err)

	_, err = NewOrchestrator([]Candidate{{ModelKey: "a", Client: &scriptedClient{}}}, nil, nil)
	assert.Error(t, err)
}

func TestClassifyBatch(t *testing.T) {
	o, err := NewOrchestrator([]Candidate{
		{ModelKey: "a", Client: &scriptedClient{}},
	}, newTestClassifier(), nil)
	require.NoError(t, err)

	raws := []string{
		`{"answer": "one"}`,
		"@@@@",
		"```json\n{\"answer\": \"three\"}\n```",
	}
	results, err := o.ClassifyBatch(context.Background(), raws, respond.ResponseContext{}, jsonConfig(), 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, respond.StatusCompleted, results[0].Status)
	assert.Equal(t, respond.StatusInvalid, results[1].Status)
	assert.Equal(t, respond.StatusCompleted, results[2].Status)
}
