package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/middleware"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/pkg/response"
)

type ProjectHandler struct {
	jobs      *service.JobService
	validator *validator.Validate
}

func NewProjectHandler(jobs *service.JobService, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		jobs:      jobs,
		validator: v,
	}
}

// Start handles POST /api/projects/start
// @Summary      Start project generation
// @Description  Queue a five shot generation run for a reference product image
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        request body model.ProjectStartRequest true "Project start request"
// @Success      202 {object} model.ProjectStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/start [post]
func (h *ProjectHandler) Start(c *fiber.Ctx) error {
	var req model.ProjectStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.jobs.StartProject(c.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/projects/status/:jobId
// @Summary      Get project job status
// @Description  Get progress and per shot steps of a project job
// @Tags         Projects
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ProjectStatusResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/status/{jobId} [get]
func (h *ProjectHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.GetStatus(c.Context(), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Result handles GET /api/projects/result/:jobId
// @Summary      Get project result
// @Description  Get the generated set of a completed project job
// @Tags         Projects
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.GeneratedSet
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/result/{jobId} [get]
func (h *ProjectHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.GetProjectResult(c.Context(), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/projects/cancel/:jobId
// @Summary      Cancel project job
// @Description  Cancel a queued or running project job. Shots already stored are kept.
// @Tags         Projects
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.CancelResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/projects/cancel/{jobId} [post]
func (h *ProjectHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.Cancel(c.Context(), jobID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}
