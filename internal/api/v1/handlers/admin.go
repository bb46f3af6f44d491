package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/flatironinstitute/runpack/internal/db/models"
	"github.com/flatironinstitute/runpack/internal/services"
	"github.com/flatironinstitute/runpack/pkg/types"
)

// AdminHandler handles the monitoring and maintenance surface
type AdminHandler struct {
	jobs    *services.JobService
	runners *services.RunnerService
}

// NewAdminHandler creates a new admin handler instance
func NewAdminHandler(jobs *services.JobService, runners *services.RunnerService) *AdminHandler {
	return &AdminHandler{jobs: jobs, runners: runners}
}

// Stats returns job counts by status and runner activity
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.jobs.Stats(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// ListJobs lists jobs, optionally filtered by status
func (h *AdminHandler) ListJobs(c *fiber.Ctx) error {
	opts := &models.ListOptions{
		Limit:  c.QueryInt("limit", models.DefaultLimit),
		Offset: c.QueryInt("offset", 0),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status, err := models.ParseJobStatus(statusStr)
		if err != nil {
			return errBadRequest(c, "invalid job status")
		}
		opts.Status = status
	}

	jobs, err := h.jobs.List(c.Context(), opts)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(types.ListJobsResponse{Jobs: jobs})
}

// GetJob returns the full stored job row, input/output/console included
func (h *AdminHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.jobs.GetDetail(c.Context(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(job)
}

// DeleteJob deletes a single job
func (h *AdminHandler) DeleteJob(c *fiber.Ctx) error {
	if err := h.jobs.Delete(c.Context(), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(types.OKResponse{Status: "ok"})
}

// BatchDeleteJobs deletes a batch of jobs and reports per-id results
func (h *AdminHandler) BatchDeleteJobs(c *fiber.Ctx) error {
	var req types.BatchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid request body")
	}
	if len(req.JobIDs) == 0 {
		return errBadRequest(c, "job_ids must not be empty")
	}

	resp, err := h.jobs.BatchDelete(c.Context(), req.JobIDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// ListRunners lists runners with derived activeness
func (h *AdminHandler) ListRunners(c *fiber.Ctx) error {
	resp, err := h.runners.List(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}

// GetRunner returns one runner and its recent jobs
func (h *AdminHandler) GetRunner(c *fiber.Ctx) error {
	resp, err := h.runners.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(resp)
}
