// Package main provides the Diffract API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/stormlab/diffract/pkg/eventbus"
	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/registry"
	"github.com/stormlab/diffract/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	nWorkers    int
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	nWorkers int,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		registry:    reg,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		nWorkers:    nWorkers,
	}
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	runs := web.NewRunManager(a.logger, a.registry, a.eventBus, a.nWorkers)

	if a.eventBus != nil {
		if err := runs.BindEventHandlers(); err != nil {
			return nil, err
		}

		if err := a.eventBus.Subscribe(ctx); err != nil {
			return nil, err
		}
	}

	handlers := web.NewAPIHandlers(a.logger, a.persistence, a.registry, a.validate, runs)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Diffract API")
	})

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

	return app, nil
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
