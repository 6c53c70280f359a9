// Package spool watches a directory of completion payload files and runs
// each one through the classifier as it settles. Processed files move to a
// done directory with the classification result written alongside.
package spool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"remend/internal/respond"
)

// Watcher monitors a spool directory for *.json and *.txt payload files.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	classifier  *respond.Classifier
	reqConfig   respond.RequestConfig
	spoolDir    string
	doneDir     string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats tracks watcher activity for debugging.
type Stats struct {
	FilesSeen     int
	Processed     int
	Completed     int
	Invalid       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// NewWatcher creates a watcher over spoolDir. Settled files are classified
// with reqConfig and moved into doneDir.
func NewWatcher(spoolDir, doneDir string, classifier *respond.Classifier, reqConfig respond.RequestConfig, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		watcher:     fw,
		classifier:  classifier,
		reqConfig:   reqConfig,
		spoolDir:    spoolDir,
		doneDir:     doneDir,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the spool directory. Non-blocking; the event loop
// runs in its own goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.spoolDir, 0755); err != nil {
		return fmt.Errorf("failed to create spool dir: %w", err)
	}
	if err := os.MkdirAll(w.doneDir, 0755); err != nil {
		return fmt.Errorf("failed to create done dir: %w", err)
	}
	if err := w.watcher.Add(w.spoolDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.spoolDir, err)
	}
	w.logger.Info("watching spool directory", zap.String("dir", w.spoolDir))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isPayload(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.mu.Lock()
	w.stats.FilesSeen++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled classifies files whose last event is older than the
// debounce window. Rapid rewrites of the same file collapse to one run.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return // deleted before it settled
		}
		w.logger.Error("failed to read payload", zap.String("path", path), zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	rc := respond.ResponseContext{RequestID: filepath.Base(path)}
	resp, err := w.classifier.Classify(ctx, string(raw), rc, w.reqConfig)
	if err != nil {
		// Config errors mean the watcher itself is misconfigured; every
		// file would hit the same wall.
		w.logger.Error("classification misconfigured", zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Processed++
	if resp.Status == respond.StatusCompleted {
		w.stats.Completed++
	} else {
		w.stats.Invalid++
	}
	w.mu.Unlock()

	w.logger.Info("payload classified",
		zap.String("file", filepath.Base(path)),
		zap.String("status", string(resp.Status)),
		zap.Int("repairs", len(resp.Repairs)))

	w.finish(path, resp)
}

// finish writes the result next to the payload in the done directory and
// moves the payload there.
func (w *Watcher) finish(path string, resp *respond.FunctionResponse) {
	base := filepath.Base(path)
	resultPath := filepath.Join(w.doneDir, base+".result.json")

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		w.logger.Error("failed to encode result", zap.Error(err))
		out = []byte(`{"status":"INVALID","error":"result encoding failed"}`)
	}
	if err := os.WriteFile(resultPath, out, 0644); err != nil {
		w.logger.Error("failed to write result", zap.String("path", resultPath), zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}

	dest := filepath.Join(w.doneDir, base)
	if err := os.Rename(path, dest); err != nil {
		w.logger.Error("failed to move payload", zap.String("path", path), zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}
}

// ProcessExisting classifies payloads already sitting in the spool
// directory. Useful at startup before events start flowing.
func (w *Watcher) ProcessExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.spoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isPayload(entry.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.spoolDir, entry.Name()))
	}
	return nil
}

// GetStats returns a snapshot of the watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func isPayload(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".txt")
}
