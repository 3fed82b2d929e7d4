package cleaning

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Canonical column names shared by every later stage.
const (
	ColType           = "Type"
	ColMunicipality   = "Municipality"
	ColPrice          = "TradePriceYen"
	ColArea           = "Area"
	ColFrontage       = "Frontage"
	ColTotalFloorArea = "TotalFloorArea"
	ColBuildingYear   = "BuildingYear"
	ColCoverageRatio  = "CoverageRatio"
	ColFloorAreaRatio = "FloorAreaRatio"
	ColBreadth        = "Breadth"
	ColRoadDirection  = "RoadDirection"
	ColFloorPlan      = "FloorPlan"
	ColPeriod         = "Period"
)

// Residential property types kept for pricing. Everything else is dropped.
const (
	TypeResidentialLand = "Residential Land(Land and Building)"
	TypeCondominium     = "Pre-owned Condominiums, etc."
)

// administrativeColumns carry codes or derived prices that are either
// redundant with other fields or leak the target.
var administrativeColumns = []string{
	"MunicipalityCode", "DistrictCode", "PriceCategory",
	"PricePerUnit", "UnitPrice", "Prefecture",
}

var renames = map[string]string{
	"TradePrice": ColPrice,
	"Direction":  ColRoadDirection,
}

// numericColumn declares how a source column is coerced and whether the
// pipeline can run without it.
type numericColumn struct {
	name     string
	kind     dataset.Kind
	required bool
}

var numericColumns = []numericColumn{
	{name: ColPrice, kind: dataset.Int, required: true},
	{name: ColArea, kind: dataset.Int, required: true},
	{name: ColFrontage, kind: dataset.Float},
	{name: ColTotalFloorArea, kind: dataset.Int},
	{name: ColCoverageRatio, kind: dataset.Int},
	{name: ColFloorAreaRatio, kind: dataset.Int},
	{name: ColBreadth, kind: dataset.Float},
}

// Normalize turns raw registry records into the canonical typed table:
// administrative columns dropped, fields renamed, out-of-scope property
// types removed, municipalities mapped, empty strings made missing and
// numeric fields coerced. It is pure and idempotent.
func Normalize(raw *dataset.Table, opts Options) (*dataset.Table, error) {
	t, err := raw.Drop(administrativeColumns...).Rename(renames)
	if err != nil {
		return nil, fmt.Errorf("failed to rename columns: %w", err)
	}

	t, err = FilterResidential(t)
	if err != nil {
		return nil, err
	}

	t, err = mapMunicipalities(t, opts.StrictMunicipality)
	if err != nil {
		return nil, err
	}

	t, err = blankToMissing(t)
	if err != nil {
		return nil, err
	}

	return coerceNumeric(t)
}

// FilterResidential keeps only pre-owned condominiums and residential land.
func FilterResidential(t *dataset.Table) (*dataset.Table, error) {
	col, err := t.RequireKind(ColType, dataset.String)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, t.Len())
	for i := range keep {
		switch col.Str(i) {
		case TypeResidentialLand, TypeCondominium:
			keep[i] = true
		}
	}
	return t.Filter(keep)
}

func mapMunicipalities(t *dataset.Table, strict bool) (*dataset.Table, error) {
	col, ok := t.Column(ColMunicipality)
	if !ok {
		slog.Debug("No municipality column to map")
		return t, nil
	}

	values := make([]string, t.Len())
	valid := make([]bool, t.Len())
	unmapped := make(map[string]int)
	for i := range values {
		if !col.IsValid(i) {
			continue
		}
		name := col.Format(i)
		label, found := MapMunicipality(name)
		if !found {
			if name != "" {
				unmapped[name]++
			}
			continue
		}
		values[i], valid[i] = label, true
	}

	if len(unmapped) > 0 {
		names := make([]string, 0, len(unmapped))
		for name := range unmapped {
			names = append(names, name)
		}
		sort.Strings(names)
		if strict {
			return nil, fmt.Errorf("%w: unmapped municipalities: %s", common.ErrDataIntegrity, strings.Join(names, ", "))
		}
		slog.Warn("Unmapped municipalities set to missing", "names", names, "distinct", len(names))
	}

	return t.With(dataset.NewStringColumn(ColMunicipality, values, valid))
}

func blankToMissing(t *dataset.Table) (*dataset.Table, error) {
	out := t
	for _, col := range t.Columns() {
		if col.Kind() != dataset.String {
			continue
		}
		values, valid := col.Strings()
		changed := false
		for i, v := range values {
			if valid[i] && v == "" {
				valid[i] = false
				changed = true
			}
		}
		if !changed {
			continue
		}
		var err error
		if out, err = out.With(dataset.NewStringColumn(col.Name(), values, valid)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func coerceNumeric(t *dataset.Table) (*dataset.Table, error) {
	out := t
	for _, spec := range numericColumns {
		col, ok := out.Column(spec.name)
		if !ok {
			if spec.required {
				return nil, fmt.Errorf("%w: required column %q is absent", common.ErrSchemaViolation, spec.name)
			}
			continue
		}
		coerced, err := coerceColumn(col, spec.kind)
		if err != nil {
			return nil, err
		}
		if out, err = out.With(coerced); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// coerceColumn casts a column to a numeric kind, keeping missing values
// missing. Unparseable or (for Int) fractional values are fatal.
func coerceColumn(col *dataset.Column, kind dataset.Kind) (*dataset.Column, error) {
	values := make([]float64, col.Len())
	valid := make([]bool, col.Len())
	for i := range values {
		if !col.IsValid(i) {
			continue
		}
		v, err := dataset.ParseNumber(kind, col.Format(i))
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %v", common.ErrDataIntegrity, col.Name(), i, err)
		}
		values[i], valid[i] = v, true
	}
	return dataset.NewNumberColumn(col.Name(), kind, values, valid), nil
}
