// Package cleaning turns raw registry transaction records into the clean
// dataset: normalized, outlier-filtered, sentinel-flagged and with parsed
// transaction periods.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Options configures the cleaning stages.
type Options struct {
	LowerQuantile float64
	UpperQuantile float64
	// AreaSentinel rows with Area at or above this value are dropped.
	AreaSentinel float64
	// StrictMunicipality makes an unmapped municipality fatal instead of
	// missing.
	StrictMunicipality bool
}

// DefaultOptions returns the production cleaning settings.
func DefaultOptions() Options {
	return Options{
		LowerQuantile: 0.005,
		UpperQuantile: 0.995,
		AreaSentinel:  9999,
	}
}

// Schema types the clean dataset when it is read back from disk.
var Schema = dataset.Schema{
	ColPrice:                dataset.Int,
	ColArea:                 dataset.Int,
	ColFrontage:             dataset.Float,
	ColTotalFloorArea:       dataset.Int,
	ColCoverageRatio:        dataset.Int,
	ColFloorAreaRatio:       dataset.Int,
	ColBreadth:              dataset.Float,
	ColBuildingYear:         dataset.Int,
	ColBuildingYearFloored:  dataset.Int,
	ColFrontageCapped:       dataset.Int,
	ColTotalFloorAreaCapped: dataset.Int,
	ColTransactionYear:      dataset.Int,
	ColTransactionQuarter:   dataset.Int,
	ColQuarterEndDate:       dataset.Date,
}

type stage struct {
	run  func(*dataset.Table) (*dataset.Table, error)
	name string
}

// Clean runs every cleaning stage in order. The first failing stage aborts
// the run; the input table is never modified.
func Clean(ctx context.Context, raw *dataset.Table, opts Options) (*dataset.Table, error) {
	stages := []stage{
		{name: "normalize", run: func(t *dataset.Table) (*dataset.Table, error) { return Normalize(t, opts) }},
		{name: "outliers", run: func(t *dataset.Table) (*dataset.Table, error) { return RemoveOutliers(t, opts) }},
		{name: "quirks", run: HandleQuirks},
		{name: "periods", run: ParsePeriods},
	}

	slog.Info("Loaded raw data", "rows", raw.Len(), "columns", raw.Width())

	t := raw
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := t.Len()
		next, err := s.run(t)
		if err != nil {
			return nil, fmt.Errorf("cleaning stage %s: %w", s.name, err)
		}
		t = next
		slog.Info("Cleaning stage complete",
			"stage", s.name,
			"rows", t.Len(),
			"columns", t.Width(),
			"dropped", before-t.Len())
	}
	return t, nil
}
