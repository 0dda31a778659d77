// Package runner drives the processing of a full scan: it fans the scan
// point indices out to a worker pool, runs the workflow tree on every
// point and collects the per-node results into pre-allocated arrays.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stormlab/diffract/pkg/dataset"
	"github.com/stormlab/diffract/pkg/eventbus"
	"github.com/stormlab/diffract/pkg/mproc"
	"github.com/stormlab/diffract/pkg/otelhelper"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/results"
	"github.com/stormlab/diffract/pkg/scan"
	"github.com/stormlab/diffract/pkg/workflow"
)

// Option configures a Runner.
type Option func(*Runner)

// WithEventBus attaches a bus for run lifecycle and progress events.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(r *Runner) { r.bus = bus }
}

// WithControllerOptions forwards options to the worker controller.
func WithControllerOptions(opts ...mproc.Option) Option {
	return func(r *Runner) { r.controllerOpts = opts }
}

// WithTracer enables a span per scan run.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// Runner executes a workflow tree over every point of a scan using a pool
// of workers. Each worker operates on its own restored copy of the tree,
// so plugin state is never shared between workers.
type Runner struct {
	logger   *slog.Logger
	registry *registry.Registry
	runnerID string
	nWorkers int

	bus            eventbus.EventBus
	tracer         trace.Tracer
	controllerOpts []mproc.Option
}

func New(logger *slog.Logger, reg *registry.Registry, nWorkers int, opts ...Option) (*Runner, error) {
	if nWorkers < 1 {
		return nil, fmt.Errorf("invalid worker count %d, need at least 1", nWorkers)
	}

	r := &Runner{
		logger:   logger.With("module", "runner"),
		registry: reg,
		runnerID: "runner-" + uuid.New().String()[:8],
		nWorkers: nWorkers,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// RunnerID returns the id stamped onto all events this runner publishes.
func (r *Runner) RunnerID() string { return r.runnerID }

// NewRunID generates a fresh run id.
func NewRunID() string {
	return uuid.New().String()
}

// Run processes the whole scan through the workflow tree and returns the
// filled result store. It blocks until all points are processed or the
// worker pool fails. The run id is stamped onto all published events; pass
// NewRunID for a fresh one.
func (r *Runner) Run(ctx context.Context, runID string, tree *workflow.Tree, scanCtx *scan.Context) (*results.Store, error) {
	if r.tracer == nil {
		return r.run(ctx, runID, tree, scanCtx)
	}

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runner.run",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.WorkerIDKey, r.runnerID),
		attribute.Int("diffract.scan.n_points", scanCtx.NPoints()),
	)
	defer span.End()

	store, err := r.run(ctx, runID, tree, scanCtx)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.RunIDKey, runID))
	}

	return store, err
}

func (r *Runner) run(ctx context.Context, runID string, tree *workflow.Tree, scanCtx *scan.Context) (*results.Store, error) {
	started := time.Now()

	logger := r.logger.With("run_id", runID)

	if err := tree.PrepareExecution(); err != nil {
		return nil, err
	}

	shapes, err := tree.AllResultShapes(false)
	if err != nil {
		return nil, err
	}

	store := results.NewStore()
	if err := store.Prepare(scanCtx, shapes, pluginTypes(tree, shapes)); err != nil {
		return nil, err
	}

	pool, err := r.buildTreePool(tree)
	if err != nil {
		return nil, err
	}

	notifier := &busNotifier{
		runner: r,
		logger: logger,
		ctx:    ctx,
		runID:  runID,
		store:  store,
	}

	controller, err := mproc.NewController(
		logger, r.nWorkers,
		append([]mproc.Option{mproc.WithNotifier(notifier)}, r.controllerOpts...)...,
	)
	if err != nil {
		return nil, err
	}

	controller.ChangeFunction(func(task any, _ ...any) (any, error) {
		index, ok := task.(int)
		if !ok {
			return nil, fmt.Errorf("task %v is not a scan point index", task)
		}

		workerTree := <-pool
		defer func() { pool <- workerTree }()

		return workerTree.ExecuteProcessAndGetResults(ctx, index, nil)
	})

	tasks := make([]any, 0, scanCtx.NPoints())
	for _, index := range scanCtx.TaskIndices() {
		tasks = append(tasks, index)
	}

	controller.AddTasks(tasks)
	controller.FinalizeTasks()

	r.publishStarted(ctx, runID, scanCtx)
	logger.Info("Scan run started", "n_points", scanCtx.NPoints(), "n_workers", r.nWorkers)

	controller.Start(ctx)

	if err := controller.Wait(); err != nil {
		r.publishFailed(ctx, runID, err, time.Since(started))
		logger.Error("Scan run failed", "error", err)

		return store, err
	}

	if notifier.storeErr != nil {
		r.publishFailed(ctx, runID, notifier.storeErr, time.Since(started))

		return store, notifier.storeErr
	}

	done, _ := controller.Progress()
	r.publishFinished(ctx, runID, done, time.Since(started))
	logger.Info("Scan run finished", "n_points", done, "duration", time.Since(started))

	return store, nil
}

// buildTreePool restores one independent tree copy per worker through the
// registry and prepares each for execution.
func (r *Runner) buildTreePool(tree *workflow.Tree) (chan *workflow.Tree, error) {
	doc := tree.Dump("worker-copy")
	pool := make(chan *workflow.Tree, r.nWorkers)

	for i := 0; i < r.nWorkers; i++ {
		copyTree, err := workflow.Restore(r.logger, r.registry, doc)
		if err != nil {
			return nil, fmt.Errorf("cannot build worker tree copy: %w", err)
		}

		if err := copyTree.PrepareExecution(); err != nil {
			return nil, err
		}

		pool <- copyTree
	}

	return pool, nil
}

func pluginTypes(tree *workflow.Tree, shapes map[int]dataset.Shape) map[int]string {
	types := make(map[int]string, len(shapes))

	for nodeID := range shapes {
		node, err := tree.Node(nodeID)
		if err != nil {
			continue
		}

		types[nodeID] = node.Plugin().Type()
	}

	return types
}

// busNotifier bridges controller callbacks into the result store and the
// event bus. Callbacks arrive on the controller's supervisory goroutine.
type busNotifier struct {
	runner *Runner
	logger *slog.Logger
	ctx    context.Context
	runID  string
	store  *results.Store

	storeErr error
}

func (n *busNotifier) Result(task any, value any) {
	index, ok := task.(int)
	if !ok {
		return
	}

	nodeResults, ok := value.(map[int]any)
	if !ok {
		n.logger.Warn("Discarding result with unexpected type", "task", task)

		return
	}

	if err := n.store.StoreResults(index, nodeResults); err != nil {
		n.logger.Error("Cannot store results", "task", index, "error", err)

		if n.storeErr == nil {
			n.storeErr = err
		}

		return
	}

	n.runner.publishTaskCompleted(n.ctx, n.runID, index, nodeResults)
}

func (n *busNotifier) Progress(fraction float64) {
	n.runner.publishProgress(n.ctx, n.runID, fraction)
}

func (n *busNotifier) Finished() {
	n.logger.Debug("Worker pool shut down")
}
