// Package storage persists the training history log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidRun      = errors.New("invalid training run")
	ErrDuplicateRunID  = errors.New("training run already recorded")
	ErrInvalidRunLimit = errors.New("limit must not be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun validates a training run before it is appended.
func validateRun(run *model.TrainingRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.RunAt.IsZero() {
		return fmt.Errorf("%w: missing run time", ErrInvalidRun)
	}
	for name, v := range map[string]float64{"MAE": run.MAE, "MAPE": run.MAPE} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidRun, name, v)
		}
	}
	if run.TrainingRows <= 0 || run.ValidationRows <= 0 {
		return fmt.Errorf("%w: row counts must be positive, got %d/%d", ErrInvalidRun, run.TrainingRows, run.ValidationRows)
	}
	return nil
}
