// Package encoding replaces categorical columns with smoothed target means.
package encoding

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
)

// Encoder defaults.
const (
	DefaultSmoothing      = 10.0
	DefaultMinSamplesLeaf = 20
)

// Encoder errors.
var (
	ErrAlreadyFitted = errors.New("encoder already fitted")
	ErrNotFitted     = errors.New("encoder not fitted")
)

// TargetEncoder maps each category to a blend of its mean target and the
// global mean, weighted by how often the category was seen. It is fitted
// once; Transform only ever applies the frozen statistics.
//
// Fields are exported so the encoder survives gob encoding inside a model
// artifact.
type TargetEncoder struct {
	Mappings       map[string]map[string]float64
	Columns        []string
	Smoothing      float64
	Prior          float64
	MinSamplesLeaf int
	Fitted         bool
}

// NewTargetEncoder returns an unfitted encoder.
func NewTargetEncoder(smoothing float64, minSamplesLeaf int) *TargetEncoder {
	return &TargetEncoder{Smoothing: smoothing, MinSamplesLeaf: minSamplesLeaf}
}

type categoryStats struct {
	sum   float64
	count int
}

// Fit learns per-category statistics for the named String columns of t
// against the target y. Calling Fit twice is an error.
func (e *TargetEncoder) Fit(t *dataset.Table, columns []string, y []float64) error {
	if e.Fitted {
		return ErrAlreadyFitted
	}
	if len(y) != t.Len() {
		return fmt.Errorf("%w: %d targets for %d rows", dataset.ErrLengthMismatch, len(y), t.Len())
	}
	if len(y) == 0 {
		return fmt.Errorf("%w: no rows to fit encoder", common.ErrInsufficientData)
	}
	if e.Smoothing <= 0 {
		return fmt.Errorf("%w: smoothing must be positive, got %v", common.ErrInvalidConfig, e.Smoothing)
	}

	prior := stat.Mean(y, nil)
	mappings := make(map[string]map[string]float64, len(columns))
	for _, name := range columns {
		col, err := t.RequireKind(name, dataset.String)
		if err != nil {
			return err
		}
		groups := make(map[string]*categoryStats)
		for i := 0; i < t.Len(); i++ {
			if !col.IsValid(i) {
				continue
			}
			g, ok := groups[col.Str(i)]
			if !ok {
				g = &categoryStats{}
				groups[col.Str(i)] = g
			}
			g.sum += y[i]
			g.count++
		}

		mapping := make(map[string]float64, len(groups))
		for category, g := range groups {
			mapping[category] = e.smooth(prior, g)
		}
		mappings[name] = mapping
	}

	e.Columns = append([]string(nil), columns...)
	e.Mappings = mappings
	e.Prior = prior
	e.Fitted = true
	return nil
}

// A category seen once carries no usable signal and collapses to the prior.
func (e *TargetEncoder) smooth(prior float64, g *categoryStats) float64 {
	if g.count == 1 {
		return prior
	}
	mean := g.sum / float64(g.count)
	weight := 1 / (1 + math.Exp(-float64(g.count-e.MinSamplesLeaf)/e.Smoothing))
	return prior*(1-weight) + mean*weight
}

// Encode returns the encoded value of one category. Unseen and missing
// categories encode to the prior.
func (e *TargetEncoder) Encode(column, category string, present bool) float64 {
	if !present {
		return e.Prior
	}
	if v, ok := e.Mappings[column][category]; ok {
		return v
	}
	return e.Prior
}

// Transform replaces every fitted column of t with its Float encoding,
// keeping column order. Fitted columns absent from t are a schema violation.
func (e *TargetEncoder) Transform(t *dataset.Table) (*dataset.Table, error) {
	if !e.Fitted {
		return nil, ErrNotFitted
	}
	out := t
	for _, name := range e.Columns {
		col, err := t.RequireKind(name, dataset.String)
		if err != nil {
			return nil, err
		}
		values := make([]float64, t.Len())
		for i := range values {
			values[i] = e.Encode(name, col.Str(i), col.IsValid(i))
		}
		if out, err = out.With(dataset.NewNumberColumn(name, dataset.Float, values, nil)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Categories lists the fitted categories of a column, sorted.
func (e *TargetEncoder) Categories(column string) []string {
	mapping := e.Mappings[column]
	out := make([]string, 0, len(mapping))
	for c := range mapping {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
