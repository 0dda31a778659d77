// Package redis provides Redis-backed persistence for workflow documents,
// stored in a single hash keyed by workflow name.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/workflow"
)

const workflowsKey = "diffract:workflows"

type Persistence struct {
	client *goredis.Client
}

// NewPersistence connects to the Redis instance at the given URL.
func NewPersistence(ctx context.Context, redisURL string) (persistence.Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot reach redis: %w", err)
	}

	return &Persistence{client: client}, nil
}

func (rp *Persistence) Workflows(ctx context.Context) ([]string, error) {
	names, err := rp.client.HKeys(ctx, workflowsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot list workflows: %w", err)
	}

	sort.Strings(names)

	return names, nil
}

func (rp *Persistence) SaveWorkflow(ctx context.Context, doc *workflow.Document) error {
	data, err := workflow.EncodeDocument(doc)
	if err != nil {
		return err
	}

	if err := rp.client.HSet(ctx, workflowsKey, doc.Name, data).Err(); err != nil {
		return fmt.Errorf("cannot save workflow %s: %w", doc.Name, err)
	}

	return nil
}

func (rp *Persistence) WorkflowByName(ctx context.Context, name string) (*workflow.Document, error) {
	data, err := rp.client.HGet(ctx, workflowsKey, name).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("cannot load workflow %s: %w", name, err)
	}

	return workflow.ParseDocument(data)
}

func (rp *Persistence) DeleteWorkflow(ctx context.Context, name string) error {
	deleted, err := rp.client.HDel(ctx, workflowsKey, name).Result()
	if err != nil {
		return fmt.Errorf("cannot delete workflow %s: %w", name, err)
	}

	if deleted == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}
