package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tokyo-appraiser/internal/cli"
	"github.com/Veraticus/tokyo-appraiser/internal/report"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or export the training history",
		Long: `List every recorded health check, oldest first. With --export the
history is written to a .csv or .xlsx file instead.`,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 0, "show only the most recent N runs (0 shows all)")
	cmd.Flags().String("export", "", "write the history to a .csv or .xlsx file")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	export, _ := cmd.Flags().GetString("export")
	ctx := cmd.Context()

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if export != "" {
		if err := report.ExportFile(export, runs); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %d runs to %s", len(runs), export)))
		return nil
	}

	fmt.Fprintln(out, cli.FormatTitle("Training history"))
	fmt.Fprint(out, cli.RenderHistory(runs))
	return nil
}
