package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"remend/internal/forensics"
)

var (
	failuresLimit int
	failuresPrune bool
)

// failuresCmd inspects the forensic parse-failure store.
var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List recent parse failures from the forensic store",
	RunE:  runFailures,
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 20, "maximum failures to list")
	failuresCmd.Flags().BoolVar(&failuresPrune, "prune", false, "delete failures older than the retention window")
}

func runFailures(cmd *cobra.Command, args []string) error {
	store, err := forensics.NewStore(cfg.Forensics.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if failuresPrune {
		cutoff := time.Now().Add(-cfg.ForensicsRetention())
		n, err := store.Prune(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d failures older than %s\n", n, cutoff.Format(time.RFC3339))
	}

	failures, err := store.Recent(ctx, failuresLimit)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Println("no parse failures recorded")
		return nil
	}
	for _, f := range failures {
		fmt.Printf("%s  %s  model=%s  attempt=%s\n  %s\n",
			f.CreatedAt.Format(time.RFC3339), f.ID, f.ModelKey, f.AttemptID, f.Error)
		if len(f.Diagnostics) > 0 {
			for _, d := range f.Diagnostics {
				fmt.Printf("    - %s\n", d)
			}
		}
	}
	return nil
}
