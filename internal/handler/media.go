package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/pkg/response"
)

// MediaHandler serves the single-shot generators and the media proxy
type MediaHandler struct {
	images    *service.ImageService
	music     *service.MusicService
	media     *service.MediaService
	validator *validator.Validate

	imagesConfigured bool
	musicConfigured  bool
}

func NewMediaHandler(images *service.ImageService, music *service.MusicService, media *service.MediaService, imagesConfigured, musicConfigured bool, v *validator.Validate) *MediaHandler {
	return &MediaHandler{
		images:           images,
		music:            music,
		media:            media,
		validator:        v,
		imagesConfigured: imagesConfigured,
		musicConfigured:  musicConfigured,
	}
}

// GenerateImage handles POST /api/images/generate
// @Summary      Text to image
// @Tags         Images
// @Accept       json
// @Produce      json
// @Param        request body model.ImageGenerateRequest true "Image request"
// @Success      200 {object} model.ImageGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/images/generate [post]
func (h *MediaHandler) GenerateImage(c *fiber.Ctx) error {
	if !h.imagesConfigured {
		return response.NotConfigured(c, "Image backend")
	}

	var req model.ImageGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.images.Generate(c.Context(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// GenerateMusic handles POST /api/music/generate
// @Summary      Generate music
// @Tags         Music
// @Accept       json
// @Produce      json
// @Param        request body model.MusicGenerateRequest true "Music request"
// @Success      200 {object} model.MusicGenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/music/generate [post]
func (h *MediaHandler) GenerateMusic(c *fiber.Ctx) error {
	if !h.musicConfigured {
		return response.NotConfigured(c, "Music provider")
	}

	var req model.MusicGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.music.Generate(c.Context(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return response.OK(c, result)
}

// Proxy handles GET /api/media/proxy
// @Summary      Proxy remote media
// @Description  Stream an allow-listed remote asset. download=1 sets an attachment disposition.
// @Tags         Media
// @Produce      octet-stream
// @Param        url      query string true  "Remote URL"
// @Param        download query bool   false "Send as attachment"
// @Success      200 {file} binary
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/media/proxy [get]
func (h *MediaHandler) Proxy(c *fiber.Ctx) error {
	rawURL := c.Query("url")
	if rawURL == "" {
		return response.ValidationError(c, "url is required", nil)
	}

	dl, err := h.media.Fetch(c.Context(), rawURL)
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, dl.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	if c.QueryBool("download") {
		name := service.FileName(rawURL, "download")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	}

	return c.Send(dl.Body)
}
