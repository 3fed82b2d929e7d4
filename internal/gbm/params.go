package gbm

import (
	"fmt"
	"math"

	"github.com/ezoic/scigo/sklearn/lightgbm"
	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// Params are the booster hyperparameters, named as in the hyperparameter
// file.
type Params struct {
	NEstimators     int     `mapstructure:"n_estimators" validate:"min=1"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"gt=0,lte=1"`
	MaxDepth        int     `mapstructure:"max_depth" validate:"min=1,max=16"`
	MinChildWeight  float64 `mapstructure:"min_child_weight" validate:"gte=0"`
	Subsample       float64 `mapstructure:"subsample" validate:"gt=0,lte=1"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" validate:"gt=0,lte=1"`
	Lambda          float64 `mapstructure:"reg_lambda" validate:"gte=0"`
	Alpha           float64 `mapstructure:"reg_alpha" validate:"gte=0"`
	Gamma           float64 `mapstructure:"gamma" validate:"gte=0"`
	Seed            int64   `mapstructure:"random_state"`
}

// DefaultParams returns the settings used for any key the hyperparameter
// file leaves out.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		LearningRate:    0.3,
		MaxDepth:        6,
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleByTree: 1,
		Lambda:          1,
		Alpha:           0,
		Gamma:           0,
		Seed:            0,
	}
}

var validate = validator.New()

// Validate checks every parameter range.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return nil
}

// minGain keeps zero-gain splits out of the trees when gamma is unset.
const minGain = 1e-7

// trainingParams translates the depth-wise settings into the leaf-wise
// trainer's terms. Trees are capped by depth alone, so the leaf budget is a
// full tree of MaxDepth. Squared error has unit hessians, which makes
// min_child_weight a minimum row count per leaf.
func (p Params) trainingParams() lightgbm.TrainingParams {
	tp := lightgbm.TrainingParams{
		NumIterations:   p.NEstimators,
		LearningRate:    p.LearningRate,
		NumLeaves:       1 << p.MaxDepth,
		MaxDepth:        p.MaxDepth,
		MinDataInLeaf:   max(1, int(math.Ceil(p.MinChildWeight))),
		Lambda:          p.Lambda,
		Alpha:           p.Alpha,
		MinGainToSplit:  max(p.Gamma, minGain),
		BaggingFraction: p.Subsample,
		FeatureFraction: p.ColsampleByTree,
		MaxBin:          255,
		MinDataInBin:    3,
		Objective:       string(lightgbm.RegressionL2),
		NumClass:        1,
		BoostingType:    string(lightgbm.GBDT),
		Seed:            int(p.Seed),
		Deterministic:   true,
		Verbosity:       -1,
	}
	if p.Subsample < 1 {
		tp.BaggingFreq = 1
	}
	return tp
}
