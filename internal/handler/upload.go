package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/pkg/response"
)

type UploadHandler struct {
	service *service.UploadService
}

func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Reference handles POST /api/uploads/reference
// @Summary      Upload reference image
// @Description  Upload a product or model reference image into owned storage
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Image file (JPEG, PNG, WEBP; max 10MB)"
// @Success      201 {object} model.UploadResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/uploads/reference [post]
func (h *UploadHandler) Reference(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > service.MaxReferenceSize {
		return response.ValidationError(c, "File size exceeds 10MB limit", map[string]interface{}{
			"maxSize":  service.MaxReferenceSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.UploadReference(c.Context(), file.Filename, file.Header.Get("Content-Type"), f, file.Size)
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, result)
}
