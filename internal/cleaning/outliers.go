package cleaning

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// PriceBounds computes the inclusive [low, high] price window from the
// lower and upper quantiles of the present prices, interpolating linearly
// between the closest ranks. ok is false when there are no prices.
func PriceBounds(prices []float64, lowerQ, upperQ float64) (low, high float64, ok bool) {
	if len(prices) == 0 {
		return 0, 0, false
	}
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)
	return quantile(sorted, lowerQ), quantile(sorted, upperQ), true
}

// quantile reads the p-quantile of sorted at rank (n-1)p. gonum's
// stat.LinInterp places ranks at np and gives a wider window on small
// tables.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	if lo < 0 {
		return sorted[0]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// RemoveOutliers drops rows priced outside the dataset-relative quantile
// window and rows whose area reaches the area sentinel. Bounds are computed
// from the table passed in on every call. Rows with a missing price or area
// never satisfy either predicate and are dropped too.
func RemoveOutliers(t *dataset.Table, opts Options) (*dataset.Table, error) {
	price, err := t.RequireKind(ColPrice, dataset.Int, dataset.Float)
	if err != nil {
		return nil, err
	}
	area, err := t.RequireKind(ColArea, dataset.Int, dataset.Float)
	if err != nil {
		return nil, err
	}

	present := make([]float64, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if price.IsValid(i) {
			present = append(present, price.Num(i))
		}
	}
	low, high, ok := PriceBounds(present, opts.LowerQuantile, opts.UpperQuantile)
	if !ok {
		return t.Slice(0, 0), nil
	}

	keep := make([]bool, t.Len())
	var priceDropped, areaDropped int
	for i := range keep {
		if !price.IsValid(i) || price.Num(i) < low || price.Num(i) > high {
			priceDropped++
			continue
		}
		if !area.IsValid(i) || area.Num(i) >= opts.AreaSentinel {
			areaDropped++
			continue
		}
		keep[i] = true
	}

	slog.Debug("Outlier bounds",
		"low", fmt.Sprintf("%.0f", low),
		"high", fmt.Sprintf("%.0f", high),
		"price_dropped", priceDropped,
		"area_dropped", areaDropped)

	return t.Filter(keep)
}
