package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tokyo-appraiser/internal/cli"
)

func preprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Engineer model features from the clean dataset",
		Long: `Add the ward flag, building age and floor-plan decomposition, impute
missing categoricals and add the log-price target.

Reads paths.clean and atomically replaces paths.preprocessed.`,
		RunE: runPreprocess,
	}
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	pre, err := preprocessStage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("Preprocessed %d rows (%d columns) into %s", pre.Len(), pre.Width(), cfg.Paths.Preprocessed)))
	return nil
}
