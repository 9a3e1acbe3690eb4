package models

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigurationError through errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an invalid option value. It is always fatal and
// is raised before any patch is processed.
type ConfigurationError struct {
	// Field names the offending option
	Field string

	// Reason describes what is wrong with it
	Reason string
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) succeed.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
