package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/stormlab/diffract/pkg/persistence"
	"github.com/stormlab/diffract/pkg/plugin"
	"github.com/stormlab/diffract/pkg/workflow"
)

var (
	ErrRunNotFound            = errors.New("run not found")
	ErrRunResultsNotAvailable = errors.New("run results not available")
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps domain errors onto problem responses.
func handleError(c fiber.Ctx, err error) error {
	var (
		userErr *workflow.UserConfigError
		cfgErr  *plugin.ConfigError
	)

	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")
	case errors.Is(err, ErrRunNotFound):
		return notFound(c, "run not found")
	case errors.Is(err, ErrRunResultsNotAvailable):
		return notFound(c, "run results not available")
	case errors.As(err, &userErr):
		return badRequest(c, userErr.Error())
	case errors.As(err, &cfgErr):
		return badRequest(c, cfgErr.Error())
	default:
		return internalError(c, err)
	}
}
