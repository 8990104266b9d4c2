package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/internal/store"
	"github.com/wildmind/studio-api/pkg/response"
)

const maxListLimit = 200

type LibraryHandler struct {
	library *service.LibraryService
}

func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// List handles GET /api/library
// @Summary      List generated sets
// @Description  List generated sets, newest first
// @Tags         Library
// @Produce      json
// @Param        limit query int false "Maximum number of sets (default 50, max 200)"
// @Success      200 {object} model.LibraryListResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/library [get]
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", store.DefaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		return response.ValidationError(c, "limit must be between 1 and 200", fiber.Map{"limit": limit})
	}

	sets, err := h.library.List(c.Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	if sets == nil {
		sets = []model.GeneratedSet{}
	}

	return response.OK(c, model.LibraryListResponse{Sets: sets, Count: len(sets)})
}

// Get handles GET /api/library/:id
// @Summary      Get generated set
// @Tags         Library
// @Produce      json
// @Param        id path string true "Set ID"
// @Success      200 {object} model.GeneratedSet
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/library/{id} [get]
func (h *LibraryHandler) Get(c *fiber.Ctx) error {
	set, err := h.library.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, set)
}

// Delete handles DELETE /api/library/:id
// @Summary      Delete generated set
// @Description  Delete the owned blobs of a set on a best effort basis, then the set itself
// @Tags         Library
// @Produce      json
// @Param        id path string true "Set ID"
// @Success      200 {object} model.DeleteSetResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/library/{id} [delete]
func (h *LibraryHandler) Delete(c *fiber.Ctx) error {
	result, err := h.library.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, result)
}

// Cleanup handles POST /api/library/cleanup
// @Summary      Remove placeholder sets
// @Tags         Library
// @Produce      json
// @Success      200 {object} model.CleanupResponse
// @Security     BearerAuth
// @Router       /api/library/cleanup [post]
func (h *LibraryHandler) Cleanup(c *fiber.Ctx) error {
	result, err := h.library.Cleanup(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, result)
}

// Migrate handles POST /api/library/migrate
// @Summary      Re-host legacy image URLs
// @Description  Copy provider hosted images of older sets into owned storage
// @Tags         Library
// @Produce      json
// @Success      200 {object} model.MigrationResponse
// @Security     BearerAuth
// @Router       /api/library/migrate [post]
func (h *LibraryHandler) Migrate(c *fiber.Ctx) error {
	result, err := h.library.Migrate(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, result)
}
