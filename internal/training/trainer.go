// Package training validates a model on a chronological holdout and, when it
// passes, retrains on all rows and packages the artifact.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/tokyo-appraiser/internal/artifact"
	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/encoding"
	"github.com/Veraticus/tokyo-appraiser/internal/features"
	"github.com/Veraticus/tokyo-appraiser/internal/gbm"
	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// ExcludedColumns never become model features: the target, its raw price
// and the period columns used only for ordering.
var ExcludedColumns = []string{
	cleaning.ColPrice,
	features.ColLogPrice,
	cleaning.ColQuarterEndDate,
	cleaning.ColTransactionQuarter,
}

// Options configures a training run.
type Options struct {
	ArtifactPath   string
	HoldoutSize    int
	Smoothing      float64
	MinSamplesLeaf int
	// MaxMAPE fails the health check above this validation MAPE (percent).
	// Zero disables the gate.
	MaxMAPE   float64
	Threshold float64
}

// DefaultOptions returns the production training settings.
func DefaultOptions() Options {
	return Options{
		HoldoutSize:    3000,
		Smoothing:      encoding.DefaultSmoothing,
		MinSamplesLeaf: encoding.DefaultMinSamplesLeaf,
		Threshold:      artifact.DefaultThreshold,
	}
}

// HistoryStore records health-check results.
type HistoryStore interface {
	AppendRun(ctx context.Context, run *model.TrainingRun) error
}

// Progress reports boosting rounds for each fit.
type Progress interface {
	Start(phase string, rounds int)
	Round(round int, trainRMSE float64)
	Finish()
}

// Result is the outcome of a successful run.
type Result struct {
	Artifact *artifact.Artifact
	Run      model.TrainingRun
}

// Trainer drives one training run through its states. A Trainer is used for
// a single run.
type Trainer struct {
	history  HistoryStore
	progress Progress
	now      func() time.Time
	newID    func() string
	state    model.RunState
	visited  []model.RunState
	opts     Options
}

// NewTrainer creates a trainer. history and progress may be nil.
func NewTrainer(opts Options, history HistoryStore, progress Progress) *Trainer {
	return &Trainer{
		opts:     opts,
		history:  history,
		progress: progress,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// State returns the current run state.
func (t *Trainer) State() model.RunState { return t.state }

// Visited returns every state the run has entered, in order.
func (t *Trainer) Visited() []model.RunState {
	return append([]model.RunState(nil), t.visited...)
}

func (t *Trainer) enter(next model.RunState, attrs ...any) {
	if !model.CanTransition(t.state, next) {
		panic(fmt.Sprintf("training: illegal transition %s -> %s", t.state, next))
	}
	slog.Info("Training state", append([]any{"from", string(t.state), "to", string(next)}, attrs...)...)
	t.state = next
	t.visited = append(t.visited, next)
}

func (t *Trainer) abort(err error) error {
	if !t.state.IsTerminal() {
		t.enter(model.StateAborted, "error", err.Error())
	}
	return err
}

// Run trains on data, the preprocessed table. A run that returns an error
// never touches the artifact file.
func (t *Trainer) Run(ctx context.Context, data *dataset.Table, hp *Hyperparameters) (*Result, error) {
	if t.state != "" {
		return nil, fmt.Errorf("trainer already used (state %s)", t.state)
	}
	t.enter(model.StateLoaded, "rows", data.Len(), "columns", data.Width())

	if err := data.Require(features.ColLogPrice); err != nil {
		return nil, t.abort(err)
	}
	if _, err := data.RequireKind(cleaning.ColQuarterEndDate, dataset.Date); err != nil {
		return nil, t.abort(err)
	}

	sorted, err := data.SortBy(cleaning.ColQuarterEndDate)
	if err != nil {
		return nil, t.abort(err)
	}
	t.enter(model.StateSorted)

	split, err := Split(sorted, t.opts.HoldoutSize)
	if err != nil {
		return nil, t.abort(err)
	}
	t.enter(model.StateSplit,
		"training_rows", split.Train.Len(),
		"validation_rows", split.Validation.Len(),
		"boundary", split.Boundary.Format(dataset.DateLayout))

	run, _, err := t.healthCheck(ctx, split, sorted.Len(), hp)
	if err != nil {
		return nil, t.abort(err)
	}
	t.enter(model.StateHealthChecked, "mae", run.MAE, "mape", run.MAPE)

	if t.history != nil {
		if err := t.history.AppendRun(ctx, &run); err != nil {
			return nil, t.abort(fmt.Errorf("failed to record training run: %w", err))
		}
	}

	if t.opts.MaxMAPE > 0 && run.MAPE > t.opts.MaxMAPE {
		t.enter(model.StateFailed)
		return nil, t.abort(fmt.Errorf("%w: validation MAPE %.4f%% exceeds %.4f%%",
			common.ErrHealthCheckFailed, run.MAPE, t.opts.MaxMAPE))
	}
	t.enter(model.StatePassed)

	t.enter(model.StateFullTrain)
	fitted, err := t.fit(ctx, "full", sorted, hp.Params)
	if err != nil {
		return nil, t.abort(err)
	}

	a := &artifact.Artifact{
		CreatedAt:       t.now().UTC(),
		Model:           fitted.model,
		Encoder:         fitted.encoder,
		Features:        fitted.features,
		Hyperparameters: hp.Raw,
		Metrics:         run,
		Threshold:       t.opts.Threshold,
		Version:         artifact.FormatVersion,
	}
	if t.opts.ArtifactPath != "" {
		if err := artifact.Save(t.opts.ArtifactPath, a); err != nil {
			return nil, t.abort(err)
		}
	} else if err := a.Validate(); err != nil {
		return nil, t.abort(err)
	}
	t.enter(model.StatePackaged, "path", t.opts.ArtifactPath)

	return &Result{Artifact: a, Run: run}, nil
}

// healthCheck fits a fresh encoder and booster on the training prefix only
// and scores them on the validation rows. The fitted validation model is
// returned alongside the run record.
func (t *Trainer) healthCheck(ctx context.Context, split *SplitResult, totalRows int, hp *Hyperparameters) (model.TrainingRun, *fittedModel, error) {
	fitted, err := t.fit(ctx, "validation", split.Train, hp.Params)
	if err != nil {
		return model.TrainingRun{}, nil, err
	}

	logPreds, err := fitted.predict(split.Validation)
	if err != nil {
		return model.TrainingRun{}, nil, err
	}
	logActual, err := split.Validation.Target(features.ColLogPrice)
	if err != nil {
		return model.TrainingRun{}, nil, err
	}
	m, err := Score(Exp(logActual), Exp(logPreds))
	if err != nil {
		return model.TrainingRun{}, nil, err
	}

	slog.Info("Validation metrics", "mae", fmt.Sprintf("¥%.0f", m.MAE), "mape", fmt.Sprintf("%.2f%%", m.MAPE))
	run := model.NewTrainingRun(t.newID(), t.now().UTC(), m.MAE, m.MAPE, totalRows, split.Validation.Len())
	return run, fitted, nil
}

type fittedModel struct {
	model    *gbm.Model
	encoder  *encoding.TargetEncoder
	features []string
}

func (f *fittedModel) predict(t *dataset.Table) ([]float64, error) {
	encoded, err := f.encoder.Transform(t)
	if err != nil {
		return nil, err
	}
	X, err := encoded.Matrix(f.features)
	if err != nil {
		return nil, err
	}
	return f.model.PredictAll(X)
}

// fit trains a fresh encoder and booster on t.
func (t *Trainer) fit(ctx context.Context, phase string, data *dataset.Table, params gbm.Params) (*fittedModel, error) {
	y, err := data.Target(features.ColLogPrice)
	if err != nil {
		return nil, err
	}
	featureNames, categorical := FeatureColumns(data)
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", common.ErrSchemaViolation)
	}

	enc := encoding.NewTargetEncoder(t.opts.Smoothing, t.opts.MinSamplesLeaf)
	if err := enc.Fit(data, categorical, y); err != nil {
		return nil, fmt.Errorf("%s encoder: %w", phase, err)
	}
	encoded, err := enc.Transform(data)
	if err != nil {
		return nil, err
	}
	X, err := encoded.Matrix(featureNames)
	if err != nil {
		return nil, err
	}

	var opts []gbm.Option
	if t.progress != nil {
		t.progress.Start(phase, params.NEstimators)
		defer t.progress.Finish()
		opts = append(opts, gbm.WithRoundFunc(func(round, _ int, rmse float64) {
			t.progress.Round(round, rmse)
		}))
	}

	slog.Info("Fitting model", "phase", phase, "rows", len(X), "features", len(featureNames), "categorical", len(categorical))
	booster, err := gbm.Fit(ctx, X, y, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s fit: %w", phase, err)
	}
	return &fittedModel{model: booster, encoder: enc, features: featureNames}, nil
}

// FeatureColumns returns the model features of t in table order and the
// subset that is categorical (String columns).
func FeatureColumns(t *dataset.Table) (all, categorical []string) {
	excluded := make(map[string]bool, len(ExcludedColumns))
	for _, c := range ExcludedColumns {
		excluded[c] = true
	}
	for _, col := range t.Columns() {
		if excluded[col.Name()] || col.Kind() == dataset.Date {
			continue
		}
		all = append(all, col.Name())
		if col.Kind() == dataset.String {
			categorical = append(categorical, col.Name())
		}
	}
	return all, categorical
}
