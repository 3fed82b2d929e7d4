package training

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/artifact"
	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/encoding"
	"github.com/Veraticus/tokyo-appraiser/internal/features"
	"github.com/Veraticus/tokyo-appraiser/internal/gbm"
	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

type memoryHistory struct {
	runs []model.TrainingRun
}

func (m *memoryHistory) AppendRun(_ context.Context, run *model.TrainingRun) error {
	m.runs = append(m.runs, *run)
	return nil
}

type recordingProgress struct {
	phases []string
	rounds int
}

func (p *recordingProgress) Start(phase string, _ int) { p.phases = append(p.phases, phase) }
func (p *recordingProgress) Round(int, float64)        { p.rounds++ }
func (p *recordingProgress) Finish()                   {}

var quarterEnd = map[int]time.Month{1: time.March, 2: time.June, 3: time.September, 4: time.December}

// preprocessedTable builds n rows in scrambled date order whose price is a
// simple function of area and ward.
func preprocessedTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	dates := make([]time.Time, n)
	quarters := make([]int, n)
	areas := make([]int, n)
	prices := make([]float64, n)
	logs := make([]float64, n)
	wards := make([]string, n)
	stations := make([]string, n)
	stationValid := make([]bool, n)

	for i := 0; i < n; i++ {
		p := (i * 37) % n
		q := p / 10
		quarters[i] = q%4 + 1
		end := time.Date(2010+q/4, quarterEnd[quarters[i]], 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
		dates[i] = end
		areas[i] = 30 + (i*13)%90
		ward := i%3 != 0
		mult := 1.0
		if ward {
			wards[i] = "港区 (Minato Ward)"
			mult = 1.5
		} else {
			wards[i] = "町田市 (Machida City)"
		}
		stations[i], stationValid[i] = "Tamachi", i%5 != 0
		prices[i] = float64(areas[i]) * 1e6 * mult
		logs[i] = math.Log(prices[i])
	}

	tbl, err := dataset.New(
		dataset.NewStringColumn(cleaning.ColMunicipality, wards, nil),
		dataset.NewStringColumn("NearestStation", stations, stationValid),
		dataset.NewIntColumn(cleaning.ColArea, areas),
		dataset.NewNumberColumn(cleaning.ColPrice, dataset.Int, prices, nil),
		dataset.NewIntColumn(cleaning.ColTransactionQuarter, quarters),
		dataset.NewDateColumn(cleaning.ColQuarterEndDate, dates, nil),
		dataset.NewNumberColumn(features.ColLogPrice, dataset.Float, logs, nil),
	)
	require.NoError(t, err)
	return tbl
}

func testHyperparameters() *Hyperparameters {
	p := gbm.DefaultParams()
	p.NEstimators = 20
	p.MaxDepth = 3
	return &Hyperparameters{Params: p, Raw: map[string]any{"n_estimators": 20.0, "max_depth": 3.0}}
}

func testOptions(dir string) Options {
	opts := DefaultOptions()
	opts.HoldoutSize = 50
	opts.ArtifactPath = filepath.Join(dir, "model.gob")
	return opts
}

func TestSplit_Chronological(t *testing.T) {
	sorted, err := preprocessedTable(t, 200).SortBy(cleaning.ColQuarterEndDate)
	require.NoError(t, err)

	split, err := Split(sorted, 50)
	require.NoError(t, err)
	assert.Equal(t, 150, split.Train.Len())
	assert.Equal(t, 50, split.Validation.Len())

	trainDates, _ := split.Train.Column(cleaning.ColQuarterEndDate)
	valDates, _ := split.Validation.Column(cleaning.ColQuarterEndDate)
	var latestTrain time.Time
	for i := 0; i < trainDates.Len(); i++ {
		if trainDates.Time(i).After(latestTrain) {
			latestTrain = trainDates.Time(i)
		}
	}
	for i := 0; i < valDates.Len(); i++ {
		assert.False(t, valDates.Time(i).Before(latestTrain), "validation row %d precedes training data", i)
	}
	assert.Equal(t, valDates.Time(0), split.Boundary)
}

func TestSplit_Errors(t *testing.T) {
	tbl := preprocessedTable(t, 20)

	_, err := Split(tbl, 20)
	assert.ErrorIs(t, err, common.ErrInsufficientData)

	_, err = Split(tbl, 0)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestTrainer_Run(t *testing.T) {
	dir := t.TempDir()
	history := &memoryHistory{}
	progress := &recordingProgress{}
	trainer := NewTrainer(testOptions(dir), history, progress)

	res, err := trainer.Run(context.Background(), preprocessedTable(t, 200), testHyperparameters())
	require.NoError(t, err)

	assert.Equal(t, []model.RunState{
		model.StateLoaded, model.StateSorted, model.StateSplit, model.StateHealthChecked,
		model.StatePassed, model.StateFullTrain, model.StatePackaged,
	}, trainer.Visited())
	assert.Equal(t, model.StatePackaged, trainer.State())

	require.Len(t, history.runs, 1)
	run := history.runs[0]
	assert.Equal(t, 200, run.TrainingRows)
	assert.Equal(t, 50, run.ValidationRows)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, run, res.Run)
	assert.Less(t, run.MAPE, 25.0)

	assert.Equal(t, []string{"validation", "full"}, progress.phases)
	assert.Equal(t, 40, progress.rounds)

	assert.Equal(t, []string{cleaning.ColMunicipality, "NearestStation", cleaning.ColArea}, res.Artifact.Features)
	assert.Equal(t, []string{cleaning.ColMunicipality, "NearestStation"}, res.Artifact.Encoder.Columns)

	loaded, err := artifact.Load(filepath.Join(dir, "model.gob"))
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.Features, loaded.Features)
	assert.Equal(t, run, loaded.Metrics)
	assert.Equal(t, float64(artifact.DefaultThreshold), loaded.Threshold)
}

func TestTrainer_HealthCheckGate(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir)
	opts.MaxMAPE = 1e-9
	previous := []byte("previous artifact")
	require.NoError(t, os.WriteFile(opts.ArtifactPath, previous, 0o600))

	history := &memoryHistory{}
	trainer := NewTrainer(opts, history, nil)
	_, err := trainer.Run(context.Background(), preprocessedTable(t, 200), testHyperparameters())

	assert.ErrorIs(t, err, common.ErrHealthCheckFailed)
	assert.Equal(t, model.StateAborted, trainer.State())
	assert.Contains(t, trainer.Visited(), model.StateFailed)
	assert.NotContains(t, trainer.Visited(), model.StateFullTrain)
	assert.Len(t, history.runs, 1, "failed runs are still recorded")

	data, err := os.ReadFile(opts.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, previous, data)
}

func TestTrainer_HealthCheckEncoderSeesOnlyTrainingRows(t *testing.T) {
	const shinjuku = "新宿区 (Shinjuku Ward)"
	sorted, err := preprocessedTable(t, 200).SortBy(cleaning.ColQuarterEndDate)
	require.NoError(t, err)
	split, err := Split(sorted, 50)
	require.NoError(t, err)

	// Validation rows move to a municipality and price level the training
	// prefix never shows.
	n := split.Validation.Len()
	munis := make([]string, n)
	logs := make([]float64, n)
	for i := range munis {
		munis[i] = shinjuku
		logs[i] = math.Log(5e9)
	}
	split.Validation, err = split.Validation.With(dataset.NewStringColumn(cleaning.ColMunicipality, munis, nil))
	require.NoError(t, err)
	split.Validation, err = split.Validation.With(dataset.NewNumberColumn(features.ColLogPrice, dataset.Float, logs, nil))
	require.NoError(t, err)

	trainer := NewTrainer(testOptions(t.TempDir()), nil, nil)
	run, fitted, err := trainer.healthCheck(context.Background(), split, sorted.Len(), testHyperparameters())
	require.NoError(t, err)

	y, err := split.Train.Target(features.ColLogPrice)
	require.NoError(t, err)
	_, categorical := FeatureColumns(split.Train)
	want := encoding.NewTargetEncoder(trainer.opts.Smoothing, trainer.opts.MinSamplesLeaf)
	require.NoError(t, want.Fit(split.Train, categorical, y))

	assert.Equal(t, want, fitted.encoder)
	assert.NotContains(t, fitted.encoder.Categories(cleaning.ColMunicipality), shinjuku)
	assert.Equal(t, fitted.encoder.Prior, fitted.encoder.Encode(cleaning.ColMunicipality, shinjuku, true))
	assert.Less(t, fitted.encoder.Prior, math.Log(5e9))
	assert.Equal(t, 50, run.ValidationRows)
	assert.Greater(t, run.MAPE, 90.0, "validation prices were never seen, so the estimate stays far below them")
}

func TestTrainer_SchemaAndSizeErrors(t *testing.T) {
	tests := []struct {
		table func(t *testing.T) *dataset.Table
		want  error
		name  string
	}{
		{
			name:  "no target",
			table: func(t *testing.T) *dataset.Table { return preprocessedTable(t, 200).Drop(features.ColLogPrice) },
			want:  common.ErrSchemaViolation,
		},
		{
			name:  "no quarter end date",
			table: func(t *testing.T) *dataset.Table { return preprocessedTable(t, 200).Drop(cleaning.ColQuarterEndDate) },
			want:  common.ErrSchemaViolation,
		},
		{
			name:  "too few rows",
			table: func(t *testing.T) *dataset.Table { return preprocessedTable(t, 50) },
			want:  common.ErrInsufficientData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &memoryHistory{}
			trainer := NewTrainer(testOptions(t.TempDir()), history, nil)
			_, err := trainer.Run(context.Background(), tt.table(t), testHyperparameters())

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, model.StateAborted, trainer.State())
			assert.Empty(t, history.runs)
		})
	}
}

func TestTrainer_SingleUse(t *testing.T) {
	trainer := NewTrainer(testOptions(t.TempDir()), nil, nil)
	_, err := trainer.Run(context.Background(), preprocessedTable(t, 200), testHyperparameters())
	require.NoError(t, err)

	_, err = trainer.Run(context.Background(), preprocessedTable(t, 200), testHyperparameters())
	assert.Error(t, err)
}

func TestFeatureColumns(t *testing.T) {
	all, categorical := FeatureColumns(preprocessedTable(t, 10))
	assert.Equal(t, []string{cleaning.ColMunicipality, "NearestStation", cleaning.ColArea}, all)
	assert.Equal(t, []string{cleaning.ColMunicipality, "NearestStation"}, categorical)
}
