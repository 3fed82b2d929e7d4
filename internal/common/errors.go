// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Every stage wraps one of these so callers can
// classify a failure with errors.Is.
var (
	// ErrInputMissing means a source file a stage depends on does not exist.
	ErrInputMissing = errors.New("input missing")
	// ErrSchemaViolation means a required column is absent.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrDataIntegrity means a value cannot be interpreted without corrupting
	// the chronological order or the target.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrInsufficientData means there are too few rows to split or fit.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrHealthCheckFailed means the holdout metrics breached the promotion gate.
	ErrHealthCheckFailed = errors.New("health check failed")
	// ErrArtifactMissing means no model artifact exists at the expected path.
	ErrArtifactMissing = errors.New("model artifact missing")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsFatalData reports whether err is a data problem (as opposed to an I/O or
// configuration problem). Data problems mean the source dataset needs fixing
// before any rerun can succeed.
func IsFatalData(err error) bool {
	return errors.Is(err, ErrSchemaViolation) ||
		errors.Is(err, ErrDataIntegrity) ||
		errors.Is(err, ErrInsufficientData)
}
