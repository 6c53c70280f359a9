// Package forensics persists unrecoverable parse failures so corrupted
// completions can be inspected after the fact. The store is a collaborator
// of the classifier, never a gate: recording errors are surfaced to the
// caller but the classification outcome does not depend on them.
package forensics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"remend/internal/respond"
)

// Failure is one recorded parse failure.
type Failure struct {
	ID          string
	CreatedAt   time.Time
	RequestID   string
	AttemptID   string
	SessionID   string
	ModelKey    string
	Error       string
	RawContent  string
	Diagnostics []string
}

// Store is a SQLite-backed failure log. Safe for concurrent use; SQLite
// serializes writers internally.
type Store struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger
}

// NewStore opens (or creates) the failure database at path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	table := `
	CREATE TABLE IF NOT EXISTS parse_failures (
		id TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		request_id TEXT,
		attempt_id TEXT,
		session_id TEXT,
		model_key TEXT,
		error TEXT NOT NULL,
		raw_content TEXT NOT NULL,
		diagnostics TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_failures_request ON parse_failures(request_id);
	CREATE INDEX IF NOT EXISTS idx_failures_model ON parse_failures(model_key);
	CREATE INDEX IF NOT EXISTS idx_failures_created ON parse_failures(created_at);
	`
	if _, err := s.db.Exec(table); err != nil {
		return fmt.Errorf("failed to create parse_failures table: %w", err)
	}
	return nil
}

// RecordParseFailure implements respond.Recorder.
func (s *Store) RecordParseFailure(ctx context.Context, parseErr error, rawContent string, rc respond.ResponseContext, diagnostics []string) error {
	diagJSON, err := json.Marshal(diagnostics)
	if err != nil {
		diagJSON = []byte("[]")
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parse_failures (id, request_id, attempt_id, session_id, model_key, error, raw_content, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rc.RequestID, rc.AttemptID, rc.SessionID, rc.ModelKey,
		parseErr.Error(), rawContent, string(diagJSON))
	if err != nil {
		return fmt.Errorf("failed to record parse failure: %w", err)
	}
	s.logger.Debug("recorded parse failure",
		zap.String("id", id),
		zap.String("attempt_id", rc.AttemptID),
		zap.String("model_key", rc.ModelKey))
	return nil
}

// Recent returns the newest failures, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, request_id, attempt_id, session_id, model_key, error, raw_content, diagnostics
		FROM parse_failures ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query parse failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var diagJSON string
		if err := rows.Scan(&f.ID, &f.CreatedAt, &f.RequestID, &f.AttemptID, &f.SessionID, &f.ModelKey, &f.Error, &f.RawContent, &diagJSON); err != nil {
			return nil, err
		}
		if diagJSON != "" {
			_ = json.Unmarshal([]byte(diagJSON), &f.Diagnostics)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Prune deletes failures recorded before the cutoff and returns how many
// rows went away.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	// CURRENT_TIMESTAMP stores "YYYY-MM-DD HH:MM:SS" text; the cutoff must
	// use the same shape for the comparison to collate correctly.
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM parse_failures WHERE created_at < ?`,
		olderThan.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to prune parse failures: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
