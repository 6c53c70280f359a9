package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remend/internal/forensics"
	"remend/internal/respond"
	"remend/internal/schema"
	"remend/internal/spool"
)

var watchSchemaPath string

// watchCmd runs the spool-directory watcher until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the spool directory and classify payloads as they arrive",
	Long: `Watches the configured spool directory for *.json and *.txt payload
files. Each settled file is classified against the schema and moved to
the done directory with a .result.json written alongside.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchemaPath, "schema", "", "path to the JSON schema descriptor (required)")
	_ = watchCmd.MarkFlagRequired("schema")
}

func runWatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(watchSchemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	desc, err := schema.Parse(data)
	if err != nil {
		return err
	}

	store, err := forensics.NewStore(cfg.Forensics.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	classifier := respond.NewClassifier(cfg.SanitizeConfig(), store, logger)
	req := respond.RequestConfig{
		Purpose:      respond.PurposeCompletions,
		OutputFormat: respond.FormatJSON,
		Schema:       desc,
	}

	watcher, err := spool.NewWatcher(cfg.Spool.Directory, cfg.Spool.DoneDir, classifier, req, cfg.SpoolDebounce(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	if err := watcher.ProcessExisting(ctx); err != nil {
		logger.Warn("failed to process existing payloads", zap.Error(err))
	}

	<-ctx.Done()
	watcher.Stop()

	stats := watcher.GetStats()
	logger.Info("watcher stopped",
		zap.Int("processed", stats.Processed),
		zap.Int("completed", stats.Completed),
		zap.Int("invalid", stats.Invalid),
		zap.Int("errors", stats.Errors))
	return nil
}
