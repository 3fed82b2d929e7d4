package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tokyo-appraiser/internal/cli"
)

func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean raw registry records",
		Long: `Normalize the raw transaction records, keep residential property types,
drop price outliers, flag registry sentinels and parse transaction periods.

Reads paths.raw (JSON or CSV) and atomically replaces paths.clean.`,
		RunE: runClean,
	}

	cmd.Flags().Bool("strict-municipality", false, "fail on municipality names missing from the mapping table")
	_ = viper.BindPFlag("cleaning.strict_municipality", cmd.Flags().Lookup("strict-municipality"))

	return cmd
}

func runClean(cmd *cobra.Command, _ []string) error {
	clean, err := cleanStage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("Cleaned %d rows into %s", clean.Len(), cfg.Paths.Clean)))
	return nil
}
