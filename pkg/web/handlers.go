package web

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/scan"
	"github.com/stormlab/diffract/pkg/workflow"
)

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *validator.Validate
	runs        *RunManager
}

func NewAPIHandlers(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	validate *validator.Validate,
	runs *RunManager,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger,
		persistence: store,
		registry:    reg,
		validator:   validate,
		runs:        runs,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	names, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": names})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	doc, err := h.persistence.WorkflowByName(c.Context(), c.Params("name"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(doc)
}

// CreateWorkflow accepts a workflow document, validates it against the
// schema and a trial restore, and persists it.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	doc, err := workflow.ParseDocument(c.Body())
	if err != nil {
		return handleError(c, err)
	}

	if _, err := workflow.Restore(h.logger, h.registry, doc); err != nil {
		return handleError(c, err)
	}

	if err := h.persistence.SaveWorkflow(c.Context(), doc); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("name")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetPlugins(c fiber.Ctx) error {
	plugins := make([]PluginInfo, 0)

	for _, id := range h.registry.AvailablePlugins() {
		schema, err := h.registry.Schema(id)
		if err != nil {
			continue
		}

		plugins = append(plugins, PluginInfo{ID: id, Schema: schema})
	}

	return c.JSON(fiber.Map{"plugins": plugins})
}

// CreateRun loads the named workflow and starts processing the posted scan
// geometry in the background.
func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	var req CreateRunRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	scanCtx, err := scan.New(req.Scan.Title, req.Scan.Dimensions...)
	if err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.persistence.WorkflowByName(c.Context(), req.Workflow)
	if err != nil {
		return handleError(c, err)
	}

	runID, err := h.runs.StartRun(doc, scanCtx, req.NWorkers)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(CreateRunResponse{ID: runID})
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"runs": h.runs.Runs()})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	state, err := h.runs.Run(c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(state)
}

// GetRunResults returns the accumulated per-node result arrays of a
// finished run.
func (h *APIHandlers) GetRunResults(c fiber.Ctx) error {
	store, err := h.runs.Results(c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	scanShape := store.ScanContext().Shape()
	nodes := make([]NodeResultsResponse, 0)

	for _, nodeID := range store.NodeIDs() {
		node, err := store.Node(nodeID)
		if err != nil {
			continue
		}

		nodes = append(nodes, NodeResultsResponse{
			NodeID:     node.NodeID,
			PluginType: node.PluginType,
			Shape:      node.Shape,
			FullShape:  node.FullShape(scanShape),
			Values:     node.Values(),
		})
	}

	return c.JSON(fiber.Map{"scan_shape": scanShape, "nodes": nodes})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
