// Package persistence provides the storage abstraction for workflow
// documents.
package persistence

import (
	"context"
	"errors"

	"github.com/stormlab/diffract/pkg/workflow"
)

var (
	// ErrWorkflowNotFound indicates no workflow document exists under the
	// given name.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

type Persistence interface {
	Workflows(ctx context.Context) ([]string, error)
	SaveWorkflow(ctx context.Context, doc *workflow.Document) error
	WorkflowByName(ctx context.Context, name string) (*workflow.Document, error)
	DeleteWorkflow(ctx context.Context, name string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
