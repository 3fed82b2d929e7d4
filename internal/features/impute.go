package features

import (
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Unknown replaces a missing categorical value.
const Unknown = "Unknown"

// CategoricalColumns are filled with Unknown when missing. Columns absent
// from a table are skipped.
var CategoricalColumns = []string{
	"Municipality", "DistrictName", "Use", "Structure", "LandShape",
	"Renovation", "Purpose", "Type", "Region", "CityPlanning",
	"Classification", "RoadDirection", "Remarks",
}

// ImputeCategoricals replaces missing values in the listed string columns
// with Unknown. Numeric columns are left alone, their missing values stay
// missing.
func ImputeCategoricals(t *dataset.Table, columns []string) (*dataset.Table, error) {
	out := t
	for _, name := range columns {
		col, ok := out.Column(name)
		if !ok || col.Kind() != dataset.String || col.Missing() == 0 {
			continue
		}
		values, valid := col.Strings()
		for i := range values {
			if !valid[i] {
				values[i] = Unknown
			}
		}
		var err error
		if out, err = out.With(dataset.NewStringColumn(name, values, nil)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
