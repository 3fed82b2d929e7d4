package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tokyo-appraiser/internal/cli"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/inference"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the price of one property",
		Long: `Estimate the price of one property with the packaged model.

Describe the property with clean dataset column names, either as a JSON
object in a file or with repeated --set flags (which override the file):

  appraise predict --set Municipality="Minato Ward" --set Area=65 \
    --set FloorPlan=2LDK --set BuildingYear=2005 --set Period="1st quarter 2024"

Anything left out is treated as unknown.`,
		RunE: runPredict,
	}

	cmd.Flags().String("input", "", "JSON file holding one property record")
	cmd.Flags().StringArray("set", nil, "field=value pair (repeatable)")
	cmd.Flags().Bool("json", false, "print the estimate as JSON")

	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	pairs, _ := cmd.Flags().GetStringArray("set")
	asJSON, _ := cmd.Flags().GetBool("json")

	record, err := buildRecord(input, pairs)
	if err != nil {
		return err
	}
	if len(record) == 0 {
		return common.NewUserError("nothing to appraise; pass --input or --set", nil)
	}

	predictor, err := inference.Load(cfg.Paths.Model)
	if errors.Is(err, common.ErrArtifactMissing) {
		return common.NewUserError("no trained model; run `appraise train` first", err)
	}
	if err != nil {
		return err
	}

	yen, err := predictor.Predict(record)
	if err != nil {
		return err
	}
	high := predictor.IsHighValue(yen)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"price_yen":  int64(yen + 0.5),
			"high_value": high,
			"threshold":  predictor.Threshold(),
		})
	}
	fmt.Fprintln(out, cli.RenderPrediction(yen, high, predictor.Threshold()))
	return nil
}

// buildRecord merges the JSON input file with --set pairs. Values from --set
// that parse as numbers are passed as numbers.
func buildRecord(path string, pairs []string) (map[string]any, error) {
	record := map[string]any{}
	if path != "" {
		// #nosec G304 - user supplied input file
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewUserError("input file "+path+" not found", common.ErrInputMissing)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, common.NewUserError("input must be a single JSON object", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, common.NewUserError(fmt.Sprintf("--set %q is not field=value", pair), common.ErrInvalidConfig)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			record[key] = n
		} else {
			record[key] = value
		}
	}
	return record, nil
}
