package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Veraticus/tokyo-appraiser/internal/cleaning"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/encoding"
	"github.com/Veraticus/tokyo-appraiser/internal/training"
)

// EnvPrefix prefixes every environment override, e.g. APPRAISE_PATHS_MODEL.
const EnvPrefix = "APPRAISE"

// Config is the explicit configuration handed to every pipeline stage.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Cleaning CleaningConfig `mapstructure:"cleaning"`
	Training TrainingConfig `mapstructure:"training"`
}

// PathsConfig locates every file the pipeline reads or writes.
type PathsConfig struct {
	Raw             string `mapstructure:"raw" validate:"required"`
	Clean           string `mapstructure:"clean" validate:"required"`
	Preprocessed    string `mapstructure:"preprocessed" validate:"required"`
	Hyperparameters string `mapstructure:"hyperparameters" validate:"required"`
	Model           string `mapstructure:"model" validate:"required"`
	Database        string `mapstructure:"database" validate:"required"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	File   string `mapstructure:"file"`
}

// CleaningConfig configures the cleaning stages.
type CleaningConfig struct {
	LowerQuantile      float64 `mapstructure:"lower_quantile" validate:"gte=0,lt=1"`
	UpperQuantile      float64 `mapstructure:"upper_quantile" validate:"gt=0,lte=1,gtfield=LowerQuantile"`
	AreaSentinel       float64 `mapstructure:"area_sentinel" validate:"gt=0"`
	StrictMunicipality bool    `mapstructure:"strict_municipality"`
}

// TrainingConfig configures the train/validate/promote run.
type TrainingConfig struct {
	HoldoutSize        int     `mapstructure:"holdout_size" validate:"min=1"`
	Smoothing          float64 `mapstructure:"smoothing" validate:"gt=0"`
	MinSamplesLeaf     int     `mapstructure:"min_samples_leaf" validate:"min=0"`
	MaxMAPE            float64 `mapstructure:"max_mape" validate:"gte=0"`
	HighValueThreshold float64 `mapstructure:"high_value_threshold" validate:"gt=0"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	defaults := cleaning.DefaultOptions()

	v.SetDefault("paths.raw", "data/tokyo-raw.json")
	v.SetDefault("paths.clean", "data/tokyo-clean.csv")
	v.SetDefault("paths.preprocessed", "data/tokyo-preprocessed.csv")
	v.SetDefault("paths.hyperparameters", "models/best_hyperparameters_xgb.json")
	v.SetDefault("paths.model", "models/tokyo_mass_market.gob")
	v.SetDefault("paths.database", "models/history.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")

	v.SetDefault("cleaning.lower_quantile", defaults.LowerQuantile)
	v.SetDefault("cleaning.upper_quantile", defaults.UpperQuantile)
	v.SetDefault("cleaning.area_sentinel", defaults.AreaSentinel)
	v.SetDefault("cleaning.strict_municipality", defaults.StrictMunicipality)

	v.SetDefault("training.holdout_size", 3000)
	v.SetDefault("training.smoothing", encoding.DefaultSmoothing)
	v.SetDefault("training.min_samples_leaf", encoding.DefaultMinSamplesLeaf)
	v.SetDefault("training.max_mape", 0)
	v.SetDefault("training.high_value_threshold", 200_000_000)
}

// BindEnv makes every key overridable through APPRAISE_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

var validate = validator.New()

// Load decodes v into a Config, expands paths and validates every field.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	for _, p := range []*string{
		&cfg.Paths.Raw, &cfg.Paths.Clean, &cfg.Paths.Preprocessed,
		&cfg.Paths.Hyperparameters, &cfg.Paths.Model, &cfg.Paths.Database,
		&cfg.Logging.File,
	} {
		*p = ExpandPath(*p)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not validate: %v", err))
	}
	return cfg
}

// CleaningOptions converts the cleaning section for the cleaning pipeline.
func (c *Config) CleaningOptions() cleaning.Options {
	return cleaning.Options{
		LowerQuantile:      c.Cleaning.LowerQuantile,
		UpperQuantile:      c.Cleaning.UpperQuantile,
		AreaSentinel:       c.Cleaning.AreaSentinel,
		StrictMunicipality: c.Cleaning.StrictMunicipality,
	}
}

// TrainingOptions converts the training section, writing the artifact to
// the configured model path.
func (c *Config) TrainingOptions() training.Options {
	return training.Options{
		ArtifactPath:   c.Paths.Model,
		HoldoutSize:    c.Training.HoldoutSize,
		Smoothing:      c.Training.Smoothing,
		MinSamplesLeaf: c.Training.MinSamplesLeaf,
		MaxMAPE:        c.Training.MaxMAPE,
		Threshold:      c.Training.HighValueThreshold,
	}
}

// LogOptions converts the logging section for common.SetupLogger.
func (c *Config) LogOptions() common.LogOptions {
	return common.LogOptions{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}
