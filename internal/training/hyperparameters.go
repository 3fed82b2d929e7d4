package training

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/gbm"
)

// EarlyStoppingKey is removed from tuned hyperparameters: both fits run the
// full number of estimators with no evaluation set.
const EarlyStoppingKey = "early_stopping_rounds"

// Hyperparameters is a tuned parameter file decoded for the booster.
type Hyperparameters struct {
	// Raw holds every key from the file except EarlyStoppingKey. It is
	// stored verbatim in the artifact.
	Raw map[string]any
	// Unused lists keys the booster does not understand, sorted.
	Unused []string
	Params gbm.Params
}

// LoadHyperparameters reads a JSON hyperparameter file. Keys the file omits
// take gbm.DefaultParams values. A missing file is common.ErrInputMissing.
func LoadHyperparameters(path string) (*Hyperparameters, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: hyperparameters %s", common.ErrInputMissing, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read hyperparameters: %v", common.ErrInvalidConfig, err)
	}
	return ParseHyperparameters(v.AllSettings())
}

// ParseHyperparameters decodes an already-loaded parameter map.
func ParseHyperparameters(raw map[string]any) (*Hyperparameters, error) {
	kept := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == EarlyStoppingKey {
			slog.Debug("Ignoring early stopping setting", "value", v)
			continue
		}
		kept[k] = v
	}

	params := gbm.DefaultParams()
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &params,
		Metadata:         &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hyperparameter decoder: %w", err)
	}
	if err := decoder.Decode(kept); err != nil {
		return nil, fmt.Errorf("%w: hyperparameters: %v", common.ErrInvalidConfig, err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	sort.Strings(meta.Unused)
	if len(meta.Unused) > 0 {
		slog.Warn("Hyperparameters not used by the booster", "keys", meta.Unused)
	}

	return &Hyperparameters{Params: params, Raw: kept, Unused: meta.Unused}, nil
}
