package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	pkgcmd "github.com/stormlab/diffract/pkg/cmd"
	"github.com/stormlab/diffract/pkg/otelhelper"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/results"
	"github.com/stormlab/diffract/pkg/runner"
	"github.com/stormlab/diffract/pkg/scan"
	"github.com/stormlab/diffract/pkg/workflow"
)

type runConfig struct {
	workflowFile string
	workflowName string
	databaseURL  string
	scanFile     string
	nWorkers     int
	eventBus     string
	schedule     string
	tracing      bool
	output       string
}

func run(ctx context.Context, logger *slog.Logger, cfg runConfig) error {
	reg := pkgcmd.NewRegistry(logger)

	doc, err := loadWorkflowDocument(ctx, cfg)
	if err != nil {
		return err
	}

	scanCtx, err := loadScanContext(cfg.scanFile)
	if err != nil {
		return err
	}

	opts := []runner.Option{}

	if cfg.eventBus != "" && cfg.eventBus != "none" {
		bus := pkgcmd.NewEventBus(cfg.eventBus, logger)
		defer func() {
			if err := bus.Close(); err != nil {
				logger.Error("Failed to close event bus", "error", err)
			}
		}()

		opts = append(opts, runner.WithEventBus(bus))
	}

	if cfg.tracing {
		tracer, err := otelhelper.NewTracer(ctx, "diffract-run")
		if err != nil {
			return fmt.Errorf("cannot initialize tracing: %w", err)
		}

		opts = append(opts, runner.WithTracer(tracer))
	}

	r, err := runner.New(logger, reg, cfg.nWorkers, opts...)
	if err != nil {
		return err
	}

	if cfg.schedule == "" {
		return runOnce(ctx, logger, r, reg, doc, scanCtx, cfg.output)
	}

	return runScheduled(ctx, logger, r, reg, doc, scanCtx, cfg)
}

func runOnce(
	ctx context.Context,
	logger *slog.Logger,
	r *runner.Runner,
	reg *registry.Registry,
	doc *workflow.Document,
	scanCtx *scan.Context,
	output string,
) error {
	tree, err := workflow.Restore(logger, reg, doc)
	if err != nil {
		return err
	}

	store, err := r.Run(ctx, runner.NewRunID(), tree, scanCtx)
	if err != nil {
		return err
	}

	if output == "" {
		return nil
	}

	return writeResults(store, output)
}

// runScheduled re-processes the scan on a cron schedule until the context
// is cancelled. Useful while a scan is still being acquired.
func runScheduled(
	ctx context.Context,
	logger *slog.Logger,
	r *runner.Runner,
	reg *registry.Registry,
	doc *workflow.Document,
	scanCtx *scan.Context,
	cfg runConfig,
) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(cfg.schedule, func() {
		if err := runOnce(ctx, logger, r, reg, doc, scanCtx, cfg.output); err != nil {
			logger.Error("Scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.schedule, err)
	}

	logger.Info("Starting scheduled processing", "schedule", cfg.schedule)
	scheduler.Start()

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return nil
}

func loadWorkflowDocument(ctx context.Context, cfg runConfig) (*workflow.Document, error) {
	if cfg.workflowFile != "" {
		data, err := os.ReadFile(cfg.workflowFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read workflow file: %w", err)
		}

		return workflow.ParseDocument(data)
	}

	if cfg.workflowName == "" {
		return nil, errors.New("either --workflow-file or --workflow must be given")
	}

	if cfg.databaseURL == "" {
		return nil, errors.New("--workflow requires --database-url")
	}

	store := pkgcmd.NewPersistence(ctx, cfg.databaseURL)
	defer func() { _ = store.Close(ctx) }()

	return store.WorkflowByName(ctx, cfg.workflowName)
}

func loadScanContext(path string) (*scan.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read scan file: %w", err)
	}

	var raw scan.Context
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot decode scan file: %w", err)
	}

	return scan.New(raw.Title, raw.Dimensions...)
}

type resultsFile struct {
	ScanShape []int         `json:"scan_shape"`
	Nodes     []resultsNode `json:"nodes"`
}

type resultsNode struct {
	NodeID     int       `json:"node_id"`
	PluginType string    `json:"plugin_type"`
	Shape      []int     `json:"shape"`
	Values     []float64 `json:"values"`
}

func writeResults(store *results.Store, path string) error {
	out := resultsFile{ScanShape: store.ScanContext().Shape()}

	for _, nodeID := range store.NodeIDs() {
		node, err := store.Node(nodeID)
		if err != nil {
			continue
		}

		out.Nodes = append(out.Nodes, resultsNode{
			NodeID:     node.NodeID,
			PluginType: node.PluginType,
			Shape:      node.Shape,
			Values:     node.Values(),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
