package training

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
)

// Metrics are validation errors on the yen scale.
type Metrics struct {
	MAE  float64
	MAPE float64 // percent
}

// Score compares yen-scale predictions to actual prices. Actual prices must
// be positive.
func Score(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("%d actual values for %d predictions", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Metrics{}, fmt.Errorf("%w: nothing to score", common.ErrInsufficientData)
	}

	abs := make([]float64, len(actual))
	pct := make([]float64, len(actual))
	for i, a := range actual {
		if a <= 0 {
			return Metrics{}, fmt.Errorf("%w: actual price %v at row %d is not positive", common.ErrDataIntegrity, a, i)
		}
		abs[i] = math.Abs(a - predicted[i])
		pct[i] = abs[i] / a
	}
	return Metrics{
		MAE:  stat.Mean(abs, nil),
		MAPE: stat.Mean(pct, nil) * 100,
	}, nil
}

// Exp maps log-scale values back to yen.
func Exp(logs []float64) []float64 {
	out := make([]float64, len(logs))
	for i, v := range logs {
		out[i] = math.Exp(v)
	}
	return out
}
