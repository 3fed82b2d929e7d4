package features

import (
	"strings"

	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Derived columns.
const (
	ColIsWard      = "Is_Ward"
	ColBuildingAge = "BuildingAge"
)

// WardMarker appears in the bilingual label of every special ward.
const WardMarker = "区"

// IsWard reports whether a municipality label names one of the 23 wards.
func IsWard(municipality string) bool {
	return strings.Contains(strings.ToLower(municipality), strings.ToLower(WardMarker))
}

// AddBasicFeatures adds Is_Ward (when Municipality exists) and BuildingAge
// (when TransactionYear and BuildingYear exist). BuildingAge is not clamped:
// a building year after the transaction year gives a negative age.
func AddBasicFeatures(t *dataset.Table) (*dataset.Table, error) {
	out := t
	var err error

	if muni, ok := t.Column(cleaning.ColMunicipality); ok {
		flags := make([]int, t.Len())
		for i := range flags {
			if muni.IsValid(i) && IsWard(muni.Format(i)) {
				flags[i] = 1
			}
		}
		if out, err = out.With(dataset.NewIntColumn(ColIsWard, flags)); err != nil {
			return nil, err
		}
	}

	txYear, hasTx := t.Column(cleaning.ColTransactionYear)
	buildYear, hasBuild := t.Column(cleaning.ColBuildingYear)
	if hasTx && hasBuild && txYear.Kind().IsNumeric() && buildYear.Kind().IsNumeric() {
		ages := make([]float64, t.Len())
		valid := make([]bool, t.Len())
		for i := range ages {
			if txYear.IsValid(i) && buildYear.IsValid(i) {
				ages[i], valid[i] = txYear.Num(i)-buildYear.Num(i), true
			}
		}
		if out, err = out.With(dataset.NewNumberColumn(ColBuildingAge, dataset.Int, ages, valid)); err != nil {
			return nil, err
		}
	}

	return out, nil
}
