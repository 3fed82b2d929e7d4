// Package inference serves price estimates from a packaged model artifact.
package inference

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Veraticus/tokyo-appraiser/internal/artifact"
	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/features"
)

// Predictor estimates prices for single properties. It is safe for
// concurrent use: nothing is modified after Load.
type Predictor struct {
	artifact    *artifact.Artifact
	categorical map[string]bool
}

// Load opens the artifact at path. A missing file is
// common.ErrArtifactMissing.
func Load(path string) (*Predictor, error) {
	a, err := artifact.Load(path)
	if err != nil {
		return nil, err
	}
	return New(a)
}

// New wraps an already loaded artifact.
func New(a *artifact.Artifact) (*Predictor, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	categorical := make(map[string]bool, len(a.Encoder.Columns))
	for _, c := range a.Encoder.Columns {
		categorical[c] = true
	}
	return &Predictor{artifact: a, categorical: categorical}, nil
}

// Artifact returns the loaded bundle.
func (p *Predictor) Artifact() *artifact.Artifact { return p.artifact }

// Threshold is the high-value cutoff in yen.
func (p *Predictor) Threshold() float64 { return p.artifact.Threshold }

// IsHighValue reports whether an estimate reaches the high-value cutoff.
func (p *Predictor) IsHighValue(yen float64) bool {
	return yen >= p.artifact.Threshold
}

// Predict estimates the price in yen of one property described with clean
// dataset column names. A Period such as "2nd quarter 2019" may stand in for
// TransactionYear and TransactionQuarter. Features the record does not
// provide are passed to the model as missing, never as zero.
func (p *Predictor) Predict(record map[string]any) (float64, error) {
	row, err := p.prepare(record)
	if err != nil {
		return 0, err
	}
	encoded, err := p.artifact.Encoder.Transform(row)
	if err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}
	X, err := encoded.Matrix(p.artifact.Features)
	if err != nil {
		return 0, err
	}
	logPrice, err := p.artifact.Model.Predict(X[0])
	if err != nil {
		return 0, err
	}

	yen := math.Exp(logPrice)
	if math.IsInf(yen, 0) || math.IsNaN(yen) {
		return 0, fmt.Errorf("%w: estimate overflowed (log price %v)", common.ErrDataIntegrity, logPrice)
	}
	return yen, nil
}

// recordSchema reads BuildingYear as text so HandleQuirks sees the pre-war
// sentinel the same way the clean stage does.
var recordSchema = features.Schema.Merge(dataset.Schema{cleaning.ColBuildingYear: dataset.String})

// prepare runs the record through the feature transforms used in training
// and returns a one-row table holding exactly the artifact's features.
func (p *Predictor) prepare(record map[string]any) (*dataset.Table, error) {
	fields, err := normalizeRecord(record)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty property record", common.ErrDataIntegrity)
	}
	row, err := dataset.FromRecord(fields, recordSchema)
	if err != nil {
		return nil, err
	}
	if row, err = cleaning.HandleQuirks(row); err != nil {
		return nil, err
	}
	if row, err = features.Engineer(row); err != nil {
		return nil, err
	}

	cols := make([]*dataset.Column, 0, len(p.artifact.Features))
	for _, name := range p.artifact.Features {
		col, err := p.align(row, name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return dataset.New(cols...)
}

func (p *Predictor) align(row *dataset.Table, name string) (*dataset.Column, error) {
	col, ok := row.Column(name)
	if p.categorical[name] {
		if !ok {
			return dataset.NewStringColumn(name, []string{""}, []bool{false}), nil
		}
		if col.Kind() != dataset.String {
			return dataset.NewStringColumn(name, []string{col.Format(0)}, []bool{col.IsValid(0)}), nil
		}
		return col, nil
	}

	if !ok {
		return dataset.NewNumberColumn(name, dataset.Float, []float64{math.NaN()}, []bool{false}), nil
	}
	switch {
	case col.Kind().IsNumeric():
		return col, nil
	case col.Kind() == dataset.String && col.IsValid(0):
		v, err := dataset.ParseNumber(dataset.Float, col.Str(0))
		if err != nil {
			return nil, fmt.Errorf("%w: feature %q: %v", common.ErrDataIntegrity, name, err)
		}
		return dataset.NewNumberColumn(name, dataset.Float, []float64{v}, nil), nil
	default:
		return dataset.NewNumberColumn(name, dataset.Float, []float64{math.NaN()}, []bool{false}), nil
	}
}

// normalizeRecord copies record, maps the municipality label and expands
// Period. Registry sentinels are left for HandleQuirks.
func normalizeRecord(record map[string]any) (map[string]any, error) {
	fields := make(map[string]any, len(record)+2)
	for k, v := range record {
		fields[k] = v
	}

	if name, ok := fields[cleaning.ColMunicipality].(string); ok && name != "" {
		label, known := cleaning.MapMunicipality(name)
		if known {
			fields[cleaning.ColMunicipality] = label
		} else {
			slog.Warn("Unknown municipality treated as missing", "municipality", name)
			fields[cleaning.ColMunicipality] = nil
		}
	}

	if period, ok := fields[cleaning.ColPeriod].(string); ok && period != "" {
		parsed, err := cleaning.ParsePeriod(period)
		if err != nil {
			return nil, err
		}
		delete(fields, cleaning.ColPeriod)
		if _, set := fields[cleaning.ColTransactionYear]; !set {
			fields[cleaning.ColTransactionYear] = parsed.Year
		}
		if _, set := fields[cleaning.ColTransactionQuarter]; !set {
			fields[cleaning.ColTransactionQuarter] = parsed.Quarter
		}
	}
	return fields, nil
}
