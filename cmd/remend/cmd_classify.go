package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"remend/internal/forensics"
	"remend/internal/respond"
	"remend/internal/schema"
)

var (
	schemaPath   string
	outputFormat string
	requestID    string
	noForensics  bool
)

// classifyCmd runs the full pipeline and prints the terminal response.
var classifyCmd = &cobra.Command{
	Use:   "classify [file|-]",
	Short: "Classify a completion payload against a schema",
	Long: `Runs the payload through repair, parse, normalization and schema
validation, then prints the terminal response as JSON. The process exits
0 for COMPLETED and 2 for INVALID; configuration mistakes (JSON format
without a schema, TEXT format with one) fail with a normal error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&schemaPath, "schema", "", "path to the JSON schema descriptor")
	classifyCmd.Flags().StringVar(&outputFormat, "format", "json", "expected output format: json or text")
	classifyCmd.Flags().StringVar(&requestID, "request-id", "", "request identifier for the forensic trail")
	classifyCmd.Flags().BoolVar(&noForensics, "no-forensics", false, "skip recording parse failures")
}

func runClassify(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}

	req := respond.RequestConfig{Purpose: respond.PurposeCompletions}
	switch outputFormat {
	case "json":
		req.OutputFormat = respond.FormatJSON
	case "text":
		req.OutputFormat = respond.FormatText
	default:
		return fmt.Errorf("unknown output format %q (want json or text)", outputFormat)
	}

	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema: %w", err)
		}
		desc, err := schema.Parse(data)
		if err != nil {
			return err
		}
		req.Schema = desc
	}

	var recorder respond.Recorder
	if !noForensics {
		store, err := forensics.NewStore(cfg.Forensics.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	classifier := respond.NewClassifier(cfg.SanitizeConfig(), recorder, logger)
	rc := respond.ResponseContext{RequestID: requestID}
	resp, err := classifier.Classify(context.Background(), content, rc, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if resp.Status != respond.StatusCompleted {
		os.Exit(2)
	}
	return nil
}
