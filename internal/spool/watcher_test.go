package spool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"remend/internal/respond"
	"remend/internal/sanitize"
	"remend/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testRequestConfig() respond.RequestConfig {
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

func newTestWatcher(t *testing.T) (*Watcher, string, string) {
	t.Helper()
	spoolDir := filepath.Join(t.TempDir(), "spool")
	doneDir := filepath.Join(spoolDir, "done")
	classifier := respond.NewClassifier(sanitize.DefaultConfig(), nil, nil)
	w, err := NewWatcher(spoolDir, doneDir, classifier, testRequestConfig(), 50*time.Millisecond, nil)
	require.NoError(t, err)
	return w, spoolDir, doneDir
}

func TestWatcherProcessesArrivingPayload(t *testing.T) {
	w, spoolDir, doneDir := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, w.IsWatching())

	payload := filepath.Join(spoolDir, "job1.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{"answer": "forty-two"}`), 0644))

	resultPath := filepath.Join(doneDir, "job1.json.result.json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(resultPath)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "result file never appeared")

	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var resp respond.FunctionResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, respond.StatusCompleted, resp.Status)

	// The payload moved out of the spool directory.
	_, err = os.Stat(payload)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(doneDir, "job1.json"))
	assert.NoError(t, err)

	stats := w.GetStats()
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Completed)
}

func TestWatcherRecordsInvalidPayloads(t *testing.T) {
	w, spoolDir, doneDir := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	payload := filepath.Join(spoolDir, "bad.txt")
	require.NoError(t, os.WriteFile(payload, []byte("@@@@"), 0644))

	resultPath := filepath.Join(doneDir, "bad.txt.result.json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(resultPath)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var resp respond.FunctionResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, respond.StatusInvalid, resp.Status)
	assert.NotEmpty(t, resp.Error)

	stats := w.GetStats()
	assert.Equal(t, 1, stats.Invalid)
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	w, spoolDir, _ := newTestWatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(spoolDir, "notes.md"), []byte("hi"), 0644))

	time.Sleep(300 * time.Millisecond)
	w.Stop()
	assert.Zero(t, w.GetStats().Processed)
}

func TestWatcherProcessExisting(t *testing.T) {
	w, spoolDir, doneDir := newTestWatcher(t)

	require.NoError(t, os.MkdirAll(spoolDir, 0755))
	require.NoError(t, os.MkdirAll(doneDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(spoolDir, "old.json"),
		[]byte(`{"answer": "was already here"}`), 0644))

	require.NoError(t, w.ProcessExisting(context.Background()))

	_, err := os.Stat(filepath.Join(doneDir, "old.json.result.json"))
	assert.NoError(t, err)
	assert.Equal(t, 1, w.GetStats().Processed)

	// Watcher never started; closing the fsnotify handle directly.
	require.NoError(t, w.watcher.Close())
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, _, _ := newTestWatcher(t)

	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}
