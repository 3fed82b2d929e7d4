package cleaning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

func priceAreaTable(t *testing.T, prices, areas []float64) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New(
		dataset.NewNumberColumn(ColPrice, dataset.Int, prices, nil),
		dataset.NewNumberColumn(ColArea, dataset.Int, areas, nil),
	)
	require.NoError(t, err)
	return tbl
}

func TestRemoveOutliers_BoundedRemoval(t *testing.T) {
	n := 1000
	prices := make([]float64, n)
	areas := make([]float64, n)
	for i := range prices {
		prices[i] = float64((i*7919)%n+1) * 100000
		areas[i] = 70
	}

	out, err := RemoveOutliers(priceAreaTable(t, prices, areas), DefaultOptions())
	require.NoError(t, err)

	removed := n - out.Len()
	assert.Greater(t, removed, 0)
	assert.LessOrEqual(t, removed, n/100)

	low, high, ok := PriceBounds(prices, 0.005, 0.995)
	require.True(t, ok)
	price := column(t, out, ColPrice)
	for i := 0; i < out.Len(); i++ {
		assert.GreaterOrEqual(t, price.Num(i), low)
		assert.LessOrEqual(t, price.Num(i), high)
	}
}

func TestRemoveOutliers_AreaSentinelAndMissing(t *testing.T) {
	prices := []float64{100, 100, 100, math.NaN(), 100}
	areas := []float64{50, 9999, 12000, 50, math.NaN()}

	out, err := RemoveOutliers(priceAreaTable(t, prices, areas), DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, 50.0, column(t, out, ColArea).Num(0))
}

func TestRemoveOutliers_EmptyTable(t *testing.T) {
	out, err := RemoveOutliers(priceAreaTable(t, nil, nil), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.True(t, out.Has(ColPrice))
}

func TestRemoveOutliers_BoundsRecomputedPerCall(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	areas := make([]float64, len(prices))
	for i := range areas {
		areas[i] = 10
	}
	tbl := priceAreaTable(t, prices, areas)

	first, err := RemoveOutliers(tbl, DefaultOptions())
	require.NoError(t, err)
	second, err := RemoveOutliers(first, DefaultOptions())
	require.NoError(t, err)

	assert.LessOrEqual(t, second.Len(), first.Len())
}

func TestPriceBounds_InterpolatesBetweenRanks(t *testing.T) {
	prices := []float64{10, 3, 7, 1, 5, 2, 9, 4, 8, 6}

	low, high, ok := PriceBounds(prices, 0.005, 0.995)
	require.True(t, ok)
	assert.InDelta(t, 1.045, low, 1e-9)
	assert.InDelta(t, 9.955, high, 1e-9)

	low, high, _ = PriceBounds(prices, 0, 1)
	assert.Equal(t, 1.0, low)
	assert.Equal(t, 10.0, high)

	low, high, _ = PriceBounds([]float64{42}, 0.005, 0.995)
	assert.Equal(t, 42.0, low)
	assert.Equal(t, 42.0, high)

	areas := make([]float64, len(prices))
	for i := range areas {
		areas[i] = 10
	}
	out, err := RemoveOutliers(priceAreaTable(t, prices, areas), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, out.Len())
	assert.Equal(t, []float64{10, 3}, prices[:2], "input left unsorted")
}
