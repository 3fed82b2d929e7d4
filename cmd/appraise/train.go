package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Validate on a chronological holdout, then train and package the model",
		Long: `Sort the preprocessed dataset by transaction quarter, hold out the most
recent rows, and measure MAE and MAPE on them. Every health check is
appended to the training history. When it passes, the model is retrained
on every row and the artifact at paths.model is replaced.`,
		RunE: runTrain,
	}

	addTrainingFlags(cmd)
	return cmd
}

// addTrainingFlags registers the health-check overrides used by train and
// run. Both commands share the viper keys, so the flags are bound only for
// the command that actually executes.
func addTrainingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("holdout", 0, "number of most recent rows held out for validation (default from config)")
	cmd.Flags().Float64("max-mape", 0, "fail the health check above this validation MAPE in percent (0 disables)")
	cmd.Flags().Bool("no-progress", false, "hide the boosting progress bar")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		_ = viper.BindPFlag("training.holdout_size", cmd.Flags().Lookup("holdout"))
		_ = viper.BindPFlag("training.max_mape", cmd.Flags().Lookup("max-mape"))
		return initConfig(cmd, args)
	}
}

func runTrain(cmd *cobra.Command, _ []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	_, err := trainStage(cmd.Context(), cfg, cmd.OutOrStdout(), !noProgress)
	return err
}
