package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormlab/diffract/pkg/persistence/file"
	"github.com/stormlab/diffract/pkg/plugins/framesource"
	"github.com/stormlab/diffract/pkg/plugins/radialsum"
	"github.com/stormlab/diffract/pkg/plugins/scale"
	"github.com/stormlab/diffract/pkg/plugins/sumall"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/web"
)

const workflowJSON = `{
	"name": "pipeline",
	"nodes": [
		{"node_id": 0, "plugin_type": "framesource", "params": {"size": [4, 4], "fill_mode": "index"}},
		{"node_id": 1, "parent_id": 0, "plugin_type": "scale", "params": {"factor": 2}},
		{"node_id": 2, "parent_id": 1, "plugin_type": "sumall"}
	]
}`

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	reg := registry.NewRegistry(logger)
	reg.RegisterPlugin(framesource.NewFactory())
	reg.RegisterPlugin(radialsum.NewFactory())
	reg.RegisterPlugin(scale.NewFactory())
	reg.RegisterPlugin(sumall.NewFactory())

	runs := web.NewRunManager(logger, reg, nil, 2)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(logger, store, reg, validate, runs)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:name", handlers.GetWorkflow)
	w.Delete("/:name", handlers.DeleteWorkflow)

	r := app.Group("/runs")
	r.Get("/", handlers.GetRuns)
	r.Post("/", handlers.CreateRun)
	r.Get("/:id", handlers.GetRun)
	r.Get("/:id/results", handlers.GetRunResults)

	app.Get("/plugins", handlers.GetPlugins)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestWorkflowCRUD(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/", workflowJSON)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/workflows/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Workflows []string `json:"workflows"`
	}

	decodeBody(t, resp, &list)
	assert.Equal(t, []string{"pipeline"}, list.Workflows)

	resp = doJSON(t, app, http.MethodGet, "/workflows/pipeline", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/workflows/pipeline", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/workflows/pipeline", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateWorkflowRejectsInvalidDocuments(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/", `{"name": "x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	unknownPlugin := `{"name": "x", "nodes": [{"node_id": 0, "plugin_type": "nope"}]}`
	resp = doJSON(t, app, http.MethodPost, "/workflows/", unknownPlugin)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	badBins := `{
		"name": "x",
		"nodes": [
			{"node_id": 0, "plugin_type": "framesource", "params": {"size": [4, 4]}},
			{"node_id": 1, "parent_id": 0, "plugin_type": "radialsum", "params": {"bins": 0}}
		]
	}`
	resp = doJSON(t, app, http.MethodPost, "/workflows/", badBins)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cycle := `{
		"name": "x",
		"nodes": [
			{"node_id": 0, "plugin_type": "framesource", "params": {"size": [4, 4]}},
			{"node_id": 1, "parent_id": 2, "plugin_type": "scale"},
			{"node_id": 2, "parent_id": 1, "plugin_type": "scale"}
		]
	}`
	resp = doJSON(t, app, http.MethodPost, "/workflows/", cycle)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRunProcessesScan(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/workflows/", workflowJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	runBody := `{
		"workflow": "pipeline",
		"scan": {
			"title": "grid",
			"dimensions": [
				{"label": "y", "n_points": 2},
				{"label": "x", "n_points": 2}
			]
		}
	}`

	resp = doJSON(t, app, http.MethodPost, "/runs/", runBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created web.CreateRunResponse

	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	state := waitForRun(t, app, created.ID)
	require.Equal(t, web.RunStatusFinished, state.Status)

	resp = doJSON(t, app, http.MethodGet, "/runs/"+created.ID+"/results", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results struct {
		Nodes []web.NodeResultsResponse `json:"nodes"`
	}

	decodeBody(t, resp, &results)
	require.Len(t, results.Nodes, 1)
	assert.Equal(t, 2, results.Nodes[0].NodeID)
	assert.Equal(t, []float64{0, 32, 64, 96}, results.Nodes[0].Values)
}

func waitForRun(t *testing.T, app *fiber.App, id string) *web.RunState {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)

	for {
		resp := doJSON(t, app, http.MethodGet, "/runs/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var state web.RunState

		decodeBody(t, resp, &state)

		if state.Status != web.RunStatusRunning {
			return &state
		}

		if time.Now().After(deadline) {
			t.Fatalf("run %s did not finish", id)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateRunValidation(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/runs/", `{"workflow": ""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	missing := `{
		"workflow": "missing",
		"scan": {"title": "g", "dimensions": [{"label": "x", "n_points": 2}]}
	}`

	resp = doJSON(t, app, http.MethodPost, "/runs/", missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRunUnknownID(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/runs/nope/results", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPlugins(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/plugins", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Plugins []web.PluginInfo `json:"plugins"`
	}

	decodeBody(t, resp, &list)
	assert.Len(t, list.Plugins, 4)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
