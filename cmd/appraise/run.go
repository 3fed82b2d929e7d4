package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tokyo-appraiser/internal/cli"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run clean, preprocess and train in order",
		Long: `Run the whole pipeline. The first failing stage stops the run; files
written by earlier stages are kept, later ones are left untouched.`,
		RunE: runPipeline,
	}
	addTrainingFlags(cmd)
	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	started := time.Now()

	fmt.Fprintln(out, cli.FormatTitle("Tokyo appraisal pipeline"))

	clean, err := cleanStage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Cleaned %d rows", clean.Len())))

	pre, err := preprocessStage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Preprocessed %d rows", pre.Len())))

	if _, err := trainStage(ctx, cfg, out, !noProgress); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	slog.Info("Pipeline complete", "duration", time.Since(started).Round(time.Millisecond))
	return nil
}
