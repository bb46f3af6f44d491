package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/internal/api/v1/middleware"
	"github.com/flatironinstitute/runpack/internal/db/models"
	"github.com/flatironinstitute/runpack/internal/services"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// RunnerHandler handles HTTP requests from runner processes
type RunnerHandler struct {
	runners *services.RunnerService
	jobs    *services.JobService
}

// NewRunnerHandler creates a new runner handler instance
func NewRunnerHandler(runners *services.RunnerService, jobs *services.JobService) *RunnerHandler {
	return &RunnerHandler{runners: runners, jobs: jobs}
}

// Register handles runner registration
func (h *RunnerHandler) Register(c *fiber.Ctx) error {
	var req types.RegisterRunnerRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}

	resp, err := h.runners.Register(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Verify confirms the caller's X-Runner-ID is registered
func (h *RunnerHandler) Verify(c *fiber.Ctx) error {
	resp, err := h.runners.Verify(c.Context(), middleware.RunnerID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// Available lists pending jobs matching the runner's declared capabilities
func (h *RunnerHandler) Available(c *fiber.Ctx) error {
	jobTypes := queryStrings(c, "types[]")
	if len(jobTypes) == 0 {
		jobTypes = queryStrings(c, "types")
	}
	limit := c.QueryInt("limit", models.DefaultLimit)

	resp, err := h.jobs.Available(c.Context(), middleware.RunnerID(c), jobTypes, limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// Claim handles the atomic pending->claimed transition
func (h *RunnerHandler) Claim(c *fiber.Ctx) error {
	resp, err := h.jobs.Claim(c.Context(), c.Params("id"), middleware.RunnerID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// Heartbeat records progress and console output for a claimed job
func (h *RunnerHandler) Heartbeat(c *fiber.Ctx) error {
	var req types.HeartbeatRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}

	if err := h.jobs.Heartbeat(c.Context(), c.Params("id"), middleware.RunnerID(c), &req); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(types.OKResponse{Status: "ok"})
}

// Complete records a successful terminal transition
func (h *RunnerHandler) Complete(c *fiber.Ctx) error {
	var req types.CompleteJobRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}

	if err := h.jobs.Complete(c.Context(), c.Params("id"), middleware.RunnerID(c), &req); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(types.OKResponse{Status: "ok"})
}

// Error records a failed terminal transition
func (h *RunnerHandler) Error(c *fiber.Ctx) error {
	var req types.ErrorJobRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}

	if err := h.jobs.Fail(c.Context(), c.Params("id"), middleware.RunnerID(c), &req); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(types.OKResponse{Status: "ok"})
}

// queryStrings collects every value of a repeated query parameter.
func queryStrings(c *fiber.Ctx, key string) []string {
	var values []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		if len(raw) > 0 {
			values = append(values, string(raw))
		}
	}
	return values
}
