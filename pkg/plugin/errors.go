package plugin

import (
	"errors"
	"fmt"
)

// ErrShapeUndetermined is returned by CalculateResultShape when required
// upstream information (e.g. an unset detector size) is missing. It is
// reported to the caller, never silently defaulted.
var ErrShapeUndetermined = errors.New("result shape could not be determined")

// ConfigError reports a parameter value outside the range a plugin can
// operate on, e.g. a non-positive bin count. Plugins return it from their
// constructors so a bad config is rejected before any data is processed.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}
