// Package artifact bundles everything inference needs into one file.
package artifact

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/encoding"
	"github.com/Veraticus/tokyo-appraiser/internal/gbm"
	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// FormatVersion is bumped whenever the Artifact layout changes. Version 2
// stores the booster as a LightGBM ensemble.
const FormatVersion = 2

// DefaultThreshold is the price in yen from which a prediction counts as a
// high-value property.
const DefaultThreshold = 200_000_000

// ErrInvalidArtifact is returned for a bundle that cannot serve predictions.
var ErrInvalidArtifact = errors.New("invalid model artifact")

func init() {
	// Hyperparameter values decoded from JSON.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// Artifact is the frozen output of a training run.
type Artifact struct {
	CreatedAt       time.Time
	Model           *gbm.Model
	Encoder         *encoding.TargetEncoder
	Hyperparameters map[string]any
	Features        []string
	Metrics         model.TrainingRun
	Threshold       float64
	Version         int
}

// Validate checks that model, encoder and feature order agree.
func (a *Artifact) Validate() error {
	switch {
	case a == nil:
		return fmt.Errorf("%w: nil artifact", ErrInvalidArtifact)
	case a.Model == nil || a.Model.Ensemble == nil:
		return fmt.Errorf("%w: no model", ErrInvalidArtifact)
	case a.Encoder == nil || !a.Encoder.Fitted:
		return fmt.Errorf("%w: no fitted encoder", ErrInvalidArtifact)
	case len(a.Features) == 0:
		return fmt.Errorf("%w: empty feature list", ErrInvalidArtifact)
	case a.Model.NumFeatures != len(a.Features):
		return fmt.Errorf("%w: model expects %d features, artifact lists %d",
			ErrInvalidArtifact, a.Model.NumFeatures, len(a.Features))
	case a.Version != FormatVersion:
		return fmt.Errorf("%w: format version %d, expected %d", ErrInvalidArtifact, a.Version, FormatVersion)
	}

	listed := make(map[string]bool, len(a.Features))
	for _, f := range a.Features {
		if listed[f] {
			return fmt.Errorf("%w: feature %q listed twice", ErrInvalidArtifact, f)
		}
		listed[f] = true
	}
	for _, c := range a.Encoder.Columns {
		if !listed[c] {
			return fmt.Errorf("%w: encoded column %q is not a feature", ErrInvalidArtifact, c)
		}
	}
	return nil
}

// Save validates a and atomically replaces the file at path. A failed save
// leaves any previous artifact in place.
func Save(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	bundle := *a
	bundle.Hyperparameters = dropNil(a.Hyperparameters)

	if err := dataset.WriteFileAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(&bundle)
	}); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	slog.Info("Model artifact saved", "path", path, "features", len(a.Features))
	return nil
}

// Load reads and validates the artifact at path. A missing file is
// common.ErrArtifactMissing.
func Load(path string) (*Artifact, error) {
	// #nosec G304 - artifact path comes from configuration
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrArtifactMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	var a Artifact
	if err := gob.NewDecoder(file).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// gob cannot encode nil interface values.
func dropNil(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			v = dropNil(nested)
		}
		out[k] = v
	}
	return out
}
