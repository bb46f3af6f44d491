// Package app assembles the coordinator's fiber application.
package app

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/internal/api/v1/routes"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// New builds the fiber app with all routes and middleware registered.
func New(cfg routes.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "runpack-coordinator",
		ErrorHandler: errorHandler,
	})

	routes.Register(app, cfg)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(types.ErrorResponse{Error: err.Error()})
}
