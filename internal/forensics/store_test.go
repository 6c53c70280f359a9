package forensics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remend/internal/respond"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "failures.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rc := respond.ResponseContext{
		RequestID: "req-1",
		AttemptID: "att-1",
		SessionID: "sess-1",
		ModelKey:  "gemini-2.5-flash",
	}
	err := s.RecordParseFailure(ctx, errors.New("unexpected end of JSON input"),
		`{"broken": `, rc, []string{"closed 1 open structure(s)"})
	require.NoError(t, err)

	err = s.RecordParseFailure(ctx, errors.New("schema validation failed"),
		`{"a": 1}`, respond.ResponseContext{RequestID: "req-2"}, nil)
	require.NoError(t, err)

	failures, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failures, 2)

	byRequest := make(map[string]Failure, len(failures))
	for _, f := range failures {
		assert.NotEmpty(t, f.ID)
		byRequest[f.RequestID] = f
	}
	first := byRequest["req-1"]
	assert.Equal(t, "att-1", first.AttemptID)
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, "gemini-2.5-flash", first.ModelKey)
	assert.Equal(t, "unexpected end of JSON input", first.Error)
	assert.Equal(t, `{"broken": `, first.RawContent)
	assert.Equal(t, []string{"closed 1 open structure(s)"}, first.Diagnostics)
}

func TestStoreRecentLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordParseFailure(ctx, errors.New("boom"), "x",
			respond.ResponseContext{}, nil))
	}
	failures, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, failures, 3)
}

func TestStorePrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordParseFailure(ctx, errors.New("boom"), "x",
		respond.ResponseContext{}, nil))

	n, err := s.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "fresh rows survive a past cutoff")

	n, err = s.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	failures, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestStoreImplementsRecorder(t *testing.T) {
	var _ respond.Recorder = (*Store)(nil)
}
