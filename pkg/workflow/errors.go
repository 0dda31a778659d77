package workflow

import (
	"fmt"
)

// UserConfigError reports a configuration mistake made by the caller, e.g.
// asking for result shapes of an empty tree. It is surfaced directly and
// never retried.
type UserConfigError struct {
	Message string
}

func (e *UserConfigError) Error() string {
	return e.Message
}

func NewUserConfigError(format string, args ...any) *UserConfigError {
	return &UserConfigError{Message: fmt.Sprintf(format, args...)}
}

// DuplicateNodeIDError reports a node id collision during node creation.
type DuplicateNodeIDError struct {
	NodeID int
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("node id %d is already in use", e.NodeID)
}

// ShapeUndeterminedError reports that shape propagation could not resolve a
// concrete shape for a node. The tree stays usable; fixing the offending
// plugin's configuration and re-propagating recovers.
type ShapeUndeterminedError struct {
	NodeID     int
	PluginType string
	Err        error
}

func (e *ShapeUndeterminedError) Error() string {
	return fmt.Sprintf(
		"cannot determine the result shape of node %d (plugin type %q): %v",
		e.NodeID, e.PluginType, e.Err,
	)
}

func (e *ShapeUndeterminedError) Unwrap() error {
	return e.Err
}
