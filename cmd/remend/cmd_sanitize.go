package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remend/internal/sanitize"
)

var showSteps bool

// sanitizeCmd runs only the repair pipeline, printing the repaired text.
var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [file|-]",
	Short: "Repair a malformed completion payload and print the result",
	Long: `Runs the repair pipeline over the payload and writes the repaired
text to stdout. Valid JSON input passes through unchanged. With --steps,
a JSON trace of each pipeline stage goes to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSanitize,
}

func init() {
	sanitizeCmd.Flags().BoolVar(&showSteps, "steps", false, "print the per-stage repair trace to stderr")
}

func runSanitize(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}

	pipeline := sanitize.NewPipeline(cfg.SanitizeConfig())
	repaired, steps, changed := pipeline.Run(content)

	if showSteps {
		trace, err := json.MarshalIndent(steps, "", "  ")
		if err == nil {
			fmt.Fprintln(os.Stderr, string(trace))
		}
	}
	logger.Debug("sanitize finished",
		zap.Bool("changed", changed),
		zap.Int("stages", len(steps)))

	fmt.Println(repaired)
	if !json.Valid([]byte(repaired)) {
		return fmt.Errorf("payload is still not valid JSON after repair")
	}
	return nil
}
