package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrAnnotation       = errors.New("annotation failed")
	ErrDataIntegrity    = errors.New("data integrity violation")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ConfigError reports an option that cannot be used to set up a run.
// It matches ErrInvalidConfig with errors.Is.
type ConfigError struct {
	Field  string
	Reason string
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// AnnotationError wraps a linguistic annotator failure on one document.
// It matches both ErrAnnotation and the underlying cause.
type AnnotationError struct {
	DocIndex string
	Err      error
}

func (e *AnnotationError) Error() string {
	return fmt.Sprintf("%s: document %q: %v", ErrAnnotation, e.DocIndex, e.Err)
}

func (e *AnnotationError) Unwrap() []error {
	return []error{ErrAnnotation, e.Err}
}

// Integrityf returns an ErrDataIntegrity-wrapped error.
func Integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}
