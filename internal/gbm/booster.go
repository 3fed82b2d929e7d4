// Package gbm fits gradient-boosted regression trees on a squared-error
// objective with scigo's LightGBM trainer and scores rows with its
// predictor.
package gbm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ezoic/scigo/sklearn/lightgbm"
	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// ErrFeatureCount is returned when a row does not match the model width.
var ErrFeatureCount = errors.New("feature count mismatch")

// MissingValue stands in for NaN features on both the fit and predict side.
// The LightGBM predictor zero-fills NaN, which would make a missing value
// indistinguishable from a real zero. The sentinel sits below every feature
// range, so missing values share the lowest histogram bin and always take
// the left branch of a split.
const MissingValue = -1e5

// lossKey is the per-round evaluation entry reported by the trainer.
const lossKey = "training_loss"

// Model is a fitted ensemble. Fields are exported for gob encoding.
type Model struct {
	Ensemble    *lightgbm.Model
	Params      Params
	NumFeatures int
}

// Predict scores one row.
func (m *Model) Predict(x []float64) (float64, error) {
	preds, err := m.PredictAll([][]float64{x})
	if err != nil {
		return 0, err
	}
	return preds[0], nil
}

// PredictAll scores every row of X.
func (m *Model) PredictAll(X [][]float64) ([]float64, error) {
	if len(X) == 0 {
		return []float64{}, nil
	}
	dense, err := denseRows(X, m.NumFeatures)
	if err != nil {
		return nil, err
	}

	predictor := lightgbm.NewPredictor(m.Ensemble)
	predictor.SetDeterministic(true)
	out, err := predictor.Predict(dense)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeatureCount, err)
	}
	return mat.Col(nil, 0, out), nil
}

// RoundFunc observes boosting progress after each tree.
type RoundFunc func(round, total int, trainRMSE float64)

// Option configures Fit.
type Option func(*fitConfig)

type fitConfig struct {
	onRound RoundFunc
}

// WithRoundFunc registers a per-round callback.
func WithRoundFunc(fn RoundFunc) Option {
	return func(c *fitConfig) { c.onRound = fn }
}

// Fit trains a model on the row-major matrix X against y. The same inputs
// and Params always produce the same model. The context is checked between
// rounds.
func Fit(ctx context.Context, X [][]float64, y []float64, params Params, opts ...Option) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d rows for %d targets", ErrFeatureCount, len(X), len(y))
	}
	if len(X) == 0 {
		return nil, fmt.Errorf("%w: no training rows", common.ErrInsufficientData)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: target at row %d is not finite", common.ErrDataIntegrity, i)
		}
	}
	width := len(X[0])
	dense, err := denseRows(X, width)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := fitConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	callbacks := []lightgbm.Callback{func(env *lightgbm.CallbackEnv) error {
		return ctx.Err()
	}}
	if cfg.onRound != nil {
		callbacks = append(callbacks, func(env *lightgbm.CallbackEnv) error {
			// Callbacks also run before each round, when the new tree is
			// not in the model yet.
			if env.Model == nil || len(env.Model.Trees) != env.Iteration+1 {
				return nil
			}
			loss, ok := env.EvalResults[lossKey]
			if !ok {
				return nil
			}
			// The L2 objective reports mean(0.5 * residual^2).
			cfg.onRound(env.Iteration+1, params.NEstimators, math.Sqrt(2*loss))
			return nil
		})
	}

	trainer := lightgbm.NewTrainer(params.trainingParams())
	target := mat.NewDense(len(y), 1, append([]float64(nil), y...))
	if err := trainer.FitWithCallbacks(dense, target, callbacks...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("boosting failed: %w", err)
	}

	return &Model{
		Ensemble:    trainer.GetModel(),
		Params:      params,
		NumFeatures: width,
	}, nil
}

// denseRows copies X into a matrix, replacing NaN with MissingValue. Every
// row must have width columns.
func denseRows(X [][]float64, width int) (*mat.Dense, error) {
	if width == 0 {
		return nil, fmt.Errorf("%w: no feature columns", ErrFeatureCount)
	}
	data := make([]float64, 0, len(X)*width)
	for i, x := range X {
		if len(x) != width {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrFeatureCount, i, len(x), width)
		}
		for _, v := range x {
			if math.IsNaN(v) {
				v = MissingValue
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(X), width, data), nil
}
