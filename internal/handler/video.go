package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/middleware"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/pkg/response"
)

type VideoHandler struct {
	videos     *service.VideoService
	jobs       *service.JobService
	configured bool
	validator  *validator.Validate
}

// NewVideoHandler wires the video endpoints. When configured is false every
// provider-backed route answers 503.
func NewVideoHandler(videos *service.VideoService, jobs *service.JobService, configured bool, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		videos:     videos,
		jobs:       jobs,
		configured: configured,
		validator:  v,
	}
}

// Models handles GET /api/video/models
// @Summary      List video models
// @Tags         Video
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /api/video/models [get]
func (h *VideoHandler) Models(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"models":          model.VideoModels(),
		"cameraMovements": model.CameraMovements,
		"default":         model.DefaultVideoModel,
	})
}

// Generate handles POST /api/video/generate
// @Summary      Submit video task
// @Description  Submit a video generation task and return the provider task id
// @Tags         Video
// @Accept       json
// @Produce      json
// @Param        request body model.VideoGenerateRequest true "Video request"
// @Success      200 {object} model.VideoGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/generate [post]
func (h *VideoHandler) Generate(c *fiber.Ctx) error {
	if !h.configured {
		return response.NotConfigured(c, "Video provider")
	}

	var req model.VideoGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	taskID, err := h.videos.Submit(c.Context(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, model.VideoGenerateResponse{TaskID: taskID})
}

// Status handles POST /api/video/status
// @Summary      Query video task
// @Description  Perform a single status query for a video task
// @Tags         Video
// @Accept       json
// @Produce      json
// @Param        request body model.VideoStatusRequest true "Status request"
// @Success      200 {object} model.VideoStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/status [post]
func (h *VideoHandler) Status(c *fiber.Ctx) error {
	if !h.configured {
		return response.NotConfigured(c, "Video provider")
	}

	var req model.VideoStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.videos.Status(c.Context(), req.TaskID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Download handles POST /api/video/download
// @Summary      Resolve video file
// @Description  Resolve a file id into a playable URL, re-hosted when storage is available
// @Tags         Video
// @Accept       json
// @Produce      json
// @Param        request body model.VideoDownloadRequest true "Download request"
// @Success      200 {object} model.VideoDownloadResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/download [post]
func (h *VideoHandler) Download(c *fiber.Ctx) error {
	if !h.configured {
		return response.NotConfigured(c, "Video provider")
	}

	var req model.VideoDownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, _, err := h.videos.Download(c.Context(), req.FileID)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Start handles POST /api/video/start
// @Summary      Start video job
// @Description  Queue the submit, poll and download flow as a background job
// @Tags         Video
// @Accept       json
// @Produce      json
// @Param        request body model.VideoGenerateRequest true "Video request"
// @Success      202 {object} model.VideoStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/start [post]
func (h *VideoHandler) Start(c *fiber.Ctx) error {
	if !h.configured {
		return response.NotConfigured(c, "Video provider")
	}

	var req model.VideoGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.jobs.StartVideo(c.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}

// JobStatus handles GET /api/video/jobs/:jobId
// @Summary      Get video job status
// @Tags         Video
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ProjectStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/jobs/{jobId} [get]
func (h *VideoHandler) JobStatus(c *fiber.Ctx) error {
	result, err := h.jobs.GetStatus(c.Context(), c.Params("jobId"))
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, result)
}

// JobResult handles GET /api/video/jobs/:jobId/result
// @Summary      Get video job result
// @Tags         Video
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.VideoResult
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/video/jobs/{jobId}/result [get]
func (h *VideoHandler) JobResult(c *fiber.Ctx) error {
	result, err := h.jobs.GetVideoResult(c.Context(), c.Params("jobId"))
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, result)
}
