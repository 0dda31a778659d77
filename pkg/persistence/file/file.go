// Package file provides file-based persistence for workflow documents. One
// JSON file per workflow, named after the workflow.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/workflow"
)

type Persistence struct {
	root string
}

// NewPersistence creates file persistence rooted at the given directory. A
// file:// prefix is stripped.
func NewPersistence(root string) (persistence.Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(cleanRoot, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create workflow directory %s: %w", cleanRoot, err)
	}

	return &Persistence{root: cleanRoot}, nil
}

func (fp *Persistence) Workflows(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fp.root)
	if err != nil {
		return nil, fmt.Errorf("cannot list workflow directory: %w", err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return names, nil
}

func (fp *Persistence) SaveWorkflow(_ context.Context, doc *workflow.Document) error {
	data, err := workflow.EncodeDocument(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(fp.path(doc.Name), data, 0o644)
}

func (fp *Persistence) WorkflowByName(_ context.Context, name string) (*workflow.Document, error) {
	data, err := os.ReadFile(fp.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("cannot read workflow %s: %w", name, err)
	}

	return workflow.ParseDocument(data)
}

func (fp *Persistence) DeleteWorkflow(_ context.Context, name string) error {
	err := os.Remove(fp.path(name))
	if os.IsNotExist(err) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

func (fp *Persistence) path(name string) string {
	return filepath.Join(fp.root, name+".json")
}
