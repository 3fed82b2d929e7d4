// Package features derives model inputs from the clean dataset. Engineer is
// shared by preprocessing and inference so both see identical transforms.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// ColLogPrice is the natural log of TradePriceYen, the training target.
const ColLogPrice = "LogTradePriceYen"

// Schema types the preprocessed dataset when it is read back from disk.
var Schema = cleaning.Schema.Merge(dataset.Schema{
	ColIsWard:      dataset.Int,
	ColBuildingAge: dataset.Int,
	ColRoomCount:   dataset.Int,
	ColHasL:        dataset.Int,
	ColHasD:        dataset.Int,
	ColHasK:        dataset.Int,
	ColHasS:        dataset.Int,
	ColLogPrice:    dataset.Float,
})

// Engineer adds the ward flag and building age, decomposes the floor plan
// and imputes categorical gaps.
func Engineer(t *dataset.Table) (*dataset.Table, error) {
	out, err := AddBasicFeatures(t)
	if err != nil {
		return nil, fmt.Errorf("basic features: %w", err)
	}
	if out, err = ParseFloorPlan(out); err != nil {
		return nil, fmt.Errorf("floor plan: %w", err)
	}
	if out, err = ImputeCategoricals(out, CategoricalColumns); err != nil {
		return nil, fmt.Errorf("impute categoricals: %w", err)
	}
	return out, nil
}

// AddLogTarget drops rows whose price is missing or not positive and adds
// LogTradePriceYen. Without a price column the table is returned unchanged.
func AddLogTarget(t *dataset.Table) (*dataset.Table, error) {
	price, ok := t.Column(cleaning.ColPrice)
	if !ok {
		slog.Warn("No price column, log target not added", "column", cleaning.ColPrice)
		return t, nil
	}
	if !price.Kind().IsNumeric() {
		return nil, fmt.Errorf("column %q is %s, not numeric", cleaning.ColPrice, price.Kind())
	}

	keep := make([]bool, t.Len())
	dropped := 0
	for i := range keep {
		keep[i] = price.IsValid(i) && price.Num(i) > 0
		if !keep[i] {
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("Dropping rows with non-positive price", "rows", dropped)
	}

	out, err := t.Filter(keep)
	if err != nil {
		return nil, err
	}
	price, _ = out.Column(cleaning.ColPrice)
	logs := make([]float64, out.Len())
	for i := range logs {
		logs[i] = math.Log(price.Num(i))
	}
	return out.With(dataset.NewNumberColumn(ColLogPrice, dataset.Float, logs, nil))
}

// Preprocess turns the clean dataset into the training table.
func Preprocess(ctx context.Context, clean *dataset.Table) (*dataset.Table, error) {
	slog.Info("Loaded clean data", "rows", clean.Len(), "columns", clean.Width())

	out, err := Engineer(clean)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if out, err = AddLogTarget(out); err != nil {
		return nil, fmt.Errorf("log target: %w", err)
	}

	slog.Info("Preprocessing complete", "rows", out.Len(), "columns", out.Width())
	return out, nil
}
