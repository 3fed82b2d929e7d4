package inference

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/artifact"
	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/features"
	"github.com/Veraticus/tokyo-appraiser/internal/gbm"
	"github.com/Veraticus/tokyo-appraiser/internal/training"
)

// trainedArtifact trains a small model where wards cost twice as much and
// price grows with area.
func trainedArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()
	return trainOn(t, cleanTable(t, 160, func(int) bool { return false }))
}

// cleanTable builds n clean rows. Rows where prewar reports true carry the
// registry's pre-war building year and sell for a fifth of the price.
func cleanTable(t *testing.T, n int, prewar func(i int) bool) *dataset.Table {
	t.Helper()
	munis := make([]string, n)
	plans := make([]string, n)
	areas := make([]int, n)
	buildYears := make([]string, n)
	txYears := make([]int, n)
	quarters := make([]int, n)
	dates := make([]time.Time, n)
	prices := make([]float64, n)

	for i := 0; i < n; i++ {
		ward := i%2 == 0
		if ward {
			munis[i] = "港区 (Minato Ward)"
		} else {
			munis[i] = "町田市 (Machida City)"
		}
		plans[i] = []string{"1K", "2LDK", "3LDK"}[i%3]
		areas[i] = 20 + (i*7)%80
		buildYears[i] = strconv.Itoa(1980 + i%30)
		txYears[i] = 2015 + i/40
		quarters[i] = 1 + (i/10)%4
		dates[i] = time.Date(txYears[i], time.Month(quarters[i]*3), 28, 0, 0, 0, 0, time.UTC)
		prices[i] = float64(areas[i]) * 500_000
		if ward {
			prices[i] *= 2
		}
		if prewar(i) {
			buildYears[i] = cleaning.PreWarText
			prices[i] /= 5
		}
	}

	clean, err := dataset.New(
		dataset.NewStringColumn(cleaning.ColMunicipality, munis, nil),
		dataset.NewStringColumn(cleaning.ColFloorPlan, plans, nil),
		dataset.NewIntColumn(cleaning.ColArea, areas),
		dataset.NewStringColumn(cleaning.ColBuildingYear, buildYears, nil),
		dataset.NewNumberColumn(cleaning.ColPrice, dataset.Int, prices, nil),
		dataset.NewIntColumn(cleaning.ColTransactionYear, txYears),
		dataset.NewIntColumn(cleaning.ColTransactionQuarter, quarters),
		dataset.NewDateColumn(cleaning.ColQuarterEndDate, dates, nil),
	)
	require.NoError(t, err)
	clean, err = cleaning.HandleQuirks(clean)
	require.NoError(t, err)
	return clean
}

func trainOn(t *testing.T, clean *dataset.Table) *artifact.Artifact {
	t.Helper()
	pre, err := features.Preprocess(context.Background(), clean)
	require.NoError(t, err)

	opts := training.DefaultOptions()
	opts.HoldoutSize = 20
	params := gbm.DefaultParams()
	params.NEstimators = 40
	params.MaxDepth = 4

	res, err := training.NewTrainer(opts, nil, nil).Run(context.Background(), pre, &training.Hyperparameters{Params: params})
	require.NoError(t, err)
	return res.Artifact
}

func newPredictor(t *testing.T) *Predictor {
	t.Helper()
	p, err := New(trainedArtifact(t))
	require.NoError(t, err)
	return p
}

func TestPredict(t *testing.T) {
	p := newPredictor(t)

	ward, err := p.Predict(map[string]any{
		"Municipality":    "Minato Ward",
		"FloorPlan":       "2LDK",
		"Area":            60,
		"BuildingYear":    2000,
		"TransactionYear": 2016,
	})
	require.NoError(t, err)
	city, err := p.Predict(map[string]any{
		"Municipality":    "Machida City",
		"FloorPlan":       "2LDK",
		"Area":            60,
		"BuildingYear":    2000,
		"TransactionYear": 2016,
	})
	require.NoError(t, err)

	assert.InEpsilon(t, 60_000_000, ward, 0.25)
	assert.InEpsilon(t, 30_000_000, city, 0.25)
	assert.Greater(t, ward, city)

	again, err := p.Predict(map[string]any{
		"Municipality":    "Minato Ward",
		"FloorPlan":       "2LDK",
		"Area":            60,
		"BuildingYear":    2000,
		"TransactionYear": 2016,
	})
	require.NoError(t, err)
	assert.Equal(t, ward, again)
}

func TestPredict_AbsentFeaturesAreMissing(t *testing.T) {
	p := newPredictor(t)

	row, err := p.prepare(map[string]any{"Area": 45})
	require.NoError(t, err)
	assert.Equal(t, p.Artifact().Features, row.Names())

	flags := map[string]bool{
		cleaning.ColBuildingYearFloored:  true,
		cleaning.ColFrontageCapped:       true,
		cleaning.ColTotalFloorAreaCapped: true,
	}
	for _, name := range row.Names() {
		col, _ := row.Column(name)
		switch {
		case name == cleaning.ColArea:
			assert.True(t, col.IsValid(0), name)
		case flags[name]:
			assert.True(t, col.IsValid(0), "%s should be an explicit zero", name)
			assert.Equal(t, 0.0, col.Num(0), name)
		default:
			assert.False(t, col.IsValid(0), "%s should be missing", name)
		}
	}

	yen, err := p.Predict(map[string]any{"Area": 45})
	require.NoError(t, err)
	assert.Positive(t, yen)
}

func TestPrepare_NormalizesRecord(t *testing.T) {
	p := newPredictor(t)

	row, err := p.prepare(map[string]any{
		"Municipality": "Atlantis",
		"Period":       "3rd quarter 2019",
		"BuildingYear": "before the war",
	})
	require.NoError(t, err)

	muni, _ := row.Column(cleaning.ColMunicipality)
	assert.Equal(t, features.Unknown, muni.Str(0), "unknown municipality is imputed like a missing one")
	ward, _ := row.Column(features.ColIsWard)
	assert.Equal(t, 0.0, ward.Num(0))

	year, _ := row.Column(cleaning.ColTransactionYear)
	assert.Equal(t, 2019.0, year.Num(0))

	age, _ := row.Column(features.ColBuildingAge)
	assert.Equal(t, float64(2019-cleaning.PreWarYear), age.Num(0))
}

func TestPrepare_QuirkFlags(t *testing.T) {
	p := newPredictor(t)

	tests := []struct {
		name   string
		record map[string]any
		want   map[string]float64
	}{
		{
			name:   "ordinary record",
			record: map[string]any{"Area": 60, "BuildingYear": 2000, "Frontage": 8.5, "TotalFloorArea": 120},
			want: map[string]float64{
				cleaning.ColBuildingYearFloored:  0,
				cleaning.ColFrontageCapped:       0,
				cleaning.ColTotalFloorAreaCapped: 0,
				cleaning.ColBuildingYear:         2000,
			},
		},
		{
			name:   "pre-war building",
			record: map[string]any{"Area": 60, "BuildingYear": cleaning.PreWarText},
			want: map[string]float64{
				cleaning.ColBuildingYearFloored:  1,
				cleaning.ColFrontageCapped:       0,
				cleaning.ColTotalFloorAreaCapped: 0,
				cleaning.ColBuildingYear:         cleaning.PreWarYear,
			},
		},
		{
			name:   "capped measurements",
			record: map[string]any{"Area": 60, "Frontage": cleaning.FrontageCap, "TotalFloorArea": cleaning.TotalFloorAreaCap},
			want: map[string]float64{
				cleaning.ColBuildingYearFloored:  0,
				cleaning.ColFrontageCapped:       1,
				cleaning.ColTotalFloorAreaCapped: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := p.prepare(tt.record)
			require.NoError(t, err)
			for name, want := range tt.want {
				col, ok := row.Column(name)
				require.True(t, ok, name)
				require.True(t, col.IsValid(0), "%s should not be missing", name)
				assert.Equal(t, want, col.Num(0), name)
			}
		})
	}
}

func TestPredict_PreWarFlagSeparatesPrices(t *testing.T) {
	p, err := New(trainOn(t, cleanTable(t, 240, func(i int) bool { return i%3 == 0 })))
	require.NoError(t, err)

	record := func(year any) map[string]any {
		return map[string]any{
			"Municipality":    "Minato Ward",
			"FloorPlan":       "2LDK",
			"Area":            60,
			"BuildingYear":    year,
			"TransactionYear": 2016,
		}
	}
	modern, err := p.Predict(record(2000))
	require.NoError(t, err)
	prewar, err := p.Predict(record(cleaning.PreWarText))
	require.NoError(t, err)

	assert.InEpsilon(t, 60_000_000, modern, 0.3)
	assert.Less(t, prewar, modern/2)
}

func TestPredict_Errors(t *testing.T) {
	p := newPredictor(t)

	_, err := p.Predict(map[string]any{"Area": "spacious"})
	assert.ErrorIs(t, err, common.ErrDataIntegrity)

	_, err = p.Predict(map[string]any{"Period": "sometime"})
	assert.ErrorIs(t, err, common.ErrDataIntegrity)

	_, err = p.Predict(map[string]any{"BuildingYear": "recently"})
	assert.ErrorIs(t, err, common.ErrDataIntegrity)

	_, err = p.Predict(map[string]any{})
	assert.ErrorIs(t, err, common.ErrDataIntegrity)
}

func TestIsHighValue(t *testing.T) {
	p := newPredictor(t)
	assert.Equal(t, float64(artifact.DefaultThreshold), p.Threshold())
	assert.True(t, p.IsHighValue(200_000_000))
	assert.False(t, p.IsHighValue(199_999_999))
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.ErrorIs(t, err, common.ErrArtifactMissing)

	path := filepath.Join(t.TempDir(), "model.gob")
	a := trainedArtifact(t)
	require.NoError(t, artifact.Save(path, a))

	p, err := Load(path)
	require.NoError(t, err)
	want, err := New(a)
	require.NoError(t, err)

	record := map[string]any{"Municipality": "Minato Ward", "Area": 70}
	got, err := p.Predict(record)
	require.NoError(t, err)
	expected, err := want.Predict(record)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}
