package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/internal/services"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// ServiceName identifies the coordinator in the health response.
const ServiceName = "runpack-coordinator"

func errBadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: msg})
}

// respondServiceError maps service-layer sentinel errors to HTTP statuses.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(types.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(types.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrNotClaimedByRunner):
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{
			Error:   "internal server error",
			Details: err.Error(),
		})
	}
}
