// Package postgresql provides PostgreSQL-backed persistence for workflow
// documents, stored as JSONB keyed by name.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/workflow"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	name       TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Persistence struct {
	db *sql.DB
}

// NewPersistence opens a connection pool against the given database URL
// and ensures the workflows table exists.
func NewPersistence(ctx context.Context, databaseURL string) (persistence.Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("cannot reach database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("cannot create workflows table: %w", err)
	}

	return &Persistence{db: db}, nil
}

func (pp *Persistence) Workflows(ctx context.Context) ([]string, error) {
	rows, err := pp.db.QueryContext(ctx, `SELECT name FROM workflows ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("cannot list workflows: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

func (pp *Persistence) SaveWorkflow(ctx context.Context, doc *workflow.Document) error {
	data, err := workflow.EncodeDocument(doc)
	if err != nil {
		return err
	}

	_, err = pp.db.ExecContext(ctx, `
		INSERT INTO workflows (name, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET document = $2, updated_at = now()`,
		doc.Name, data,
	)
	if err != nil {
		return fmt.Errorf("cannot save workflow %s: %w", doc.Name, err)
	}

	return nil
}

func (pp *Persistence) WorkflowByName(ctx context.Context, name string) (*workflow.Document, error) {
	var data []byte

	err := pp.db.QueryRowContext(ctx,
		`SELECT document FROM workflows WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("cannot load workflow %s: %w", name, err)
	}

	return workflow.ParseDocument(data)
}

func (pp *Persistence) DeleteWorkflow(ctx context.Context, name string) error {
	result, err := pp.db.ExecContext(ctx, `DELETE FROM workflows WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("cannot delete workflow %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func (pp *Persistence) HealthCheck(ctx context.Context) error {
	return pp.db.PingContext(ctx)
}

func (pp *Persistence) Close(_ context.Context) error {
	return pp.db.Close()
}
