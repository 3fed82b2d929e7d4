package cleaning

import (
	"fmt"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Registry sentinels.
const (
	// PreWarText is the registry's BuildingYear value for buildings
	// constructed before 1945.
	PreWarText = "before the war"
	// PreWarYear replaces PreWarText.
	PreWarYear = 1945
	// FrontageCap is the registry's capped frontage value.
	FrontageCap = 9999.9
	// TotalFloorAreaCap is the registry's capped total floor area value.
	TotalFloorAreaCap = 9999
)

// Flag columns added by HandleQuirks.
const (
	ColBuildingYearFloored  = "BuildingYearFloored"
	ColFrontageCapped       = "FrontageCapped"
	ColTotalFloorAreaCapped = "TotalFloorAreaCapped"
)

// HandleQuirks turns registry sentinels into explicit 0/1 flag columns:
// pre-war building years become 1945 with BuildingYearFloored=1, capped
// frontage and capped total floor area set their own flags. Source columns
// are optional; a missing source column yields an all-zero flag.
func HandleQuirks(t *dataset.Table) (*dataset.Table, error) {
	year, floored, err := normalizeBuildingYear(t)
	if err != nil {
		return nil, err
	}

	out := t
	if year != nil {
		if out, err = out.With(year); err != nil {
			return nil, err
		}
	}
	if out, err = out.With(floored); err != nil {
		return nil, err
	}

	for _, c := range []struct {
		source, flag string
		value        float64
	}{
		{ColFrontage, ColFrontageCapped, FrontageCap},
		{ColTotalFloorArea, ColTotalFloorAreaCapped, TotalFloorAreaCap},
	} {
		if out, err = out.With(capFlag(out, c.source, c.flag, c.value)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func normalizeBuildingYear(t *dataset.Table) (*dataset.Column, *dataset.Column, error) {
	flags := make([]int, t.Len())
	col, ok := t.Column(ColBuildingYear)
	if !ok {
		return nil, dataset.NewIntColumn(ColBuildingYearFloored, flags), nil
	}

	years := make([]float64, t.Len())
	valid := make([]bool, t.Len())
	for i := range years {
		if !col.IsValid(i) {
			continue
		}
		text := col.Format(i)
		if text == PreWarText {
			years[i], valid[i], flags[i] = PreWarYear, true, 1
			continue
		}
		v, err := dataset.ParseNumber(dataset.Int, text)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: column %q row %d: %v", common.ErrDataIntegrity, ColBuildingYear, i, err)
		}
		years[i], valid[i] = v, true
	}

	return dataset.NewNumberColumn(ColBuildingYear, dataset.Int, years, valid),
		dataset.NewIntColumn(ColBuildingYearFloored, flags),
		nil
}

func capFlag(t *dataset.Table, source, flag string, value float64) *dataset.Column {
	flags := make([]int, t.Len())
	if col, ok := t.Column(source); ok && col.Kind().IsNumeric() {
		for i := range flags {
			if col.IsValid(i) && col.Num(i) == value {
				flags[i] = 1
			}
		}
	}
	return dataset.NewIntColumn(flag, flags)
}
