package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/internal/services"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// JobHandler handles HTTP requests for job submission and status
type JobHandler struct {
	service *services.JobService
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(s *services.JobService) *JobHandler {
	return &JobHandler{service: s}
}

// Health handles the liveness endpoint
func Health(c *fiber.Ctx) error {
	return c.JSON(types.HealthResponse{Status: "ok", Service: ServiceName})
}

// Submit handles the request to create or resolve a job.
// Responds 201 when a new job was created, 200 otherwise.
func (h *JobHandler) Submit(c *fiber.Ctx) error {
	var req types.SubmitJobRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}

	result, err := h.service.Submit(c.Context(), req.JobType, req.InputParams)
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result.Job)
}

// Check handles the read-only twin of Submit; it never creates a job.
func (h *JobHandler) Check(c *fiber.Ctx) error {
	var req types.SubmitJobRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}

	resp, err := h.service.Check(c.Context(), req.JobType, req.InputParams)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// GetStatus handles the request to get a job's status by id
func (h *JobHandler) GetStatus(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return errBadRequest(c, "invalid job id")
	}

	info, err := h.service.Get(c.Context(), jobID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(info)
}
