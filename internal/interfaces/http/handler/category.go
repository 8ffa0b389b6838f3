package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/resell/backoffice/internal/domain/catalog"
)

// CategoryHandler exposes the static category mapping lookup
type CategoryHandler struct {
	BaseHandler
	mappings catalog.CategoryMappingRepository
}

// NewCategoryHandler creates a CategoryHandler
func NewCategoryHandler(mappings catalog.CategoryMappingRepository) *CategoryHandler {
	return &CategoryHandler{mappings: mappings}
}

// categoryMappingResponse serializes one mapping row
type categoryMappingResponse struct {
	LocalPath            string  `json:"local_path"`
	PlatformCategoryCode string  `json:"platform_category_code"`
	Similarity           float64 `json:"similarity"`
	Tier                 string  `json:"tier"`
}

func toCategoryMappingResponse(m *catalog.CategoryMapping) categoryMappingResponse {
	return categoryMappingResponse{
		LocalPath:            m.LocalPath,
		PlatformCategoryCode: m.PlatformCategoryCode,
		Similarity:           m.Similarity,
		Tier:                 string(m.Tier),
	}
}

// List returns all mappings, optionally filtered by tier
// GET /api/v1/categories/mappings?tier=HIGH
func (h *CategoryHandler) List(c *gin.Context) {
	var tier *catalog.MappingTier
	if raw := c.Query("tier"); raw != "" {
		t := catalog.MappingTier(raw)
		if !t.IsValid() {
			h.BadRequest(c, "Unknown mapping tier")
			return
		}
		tier = &t
	}

	mappings, err := h.mappings.List(c.Request.Context(), tier)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]categoryMappingResponse, 0, len(mappings))
	for i := range mappings {
		out = append(out, toCategoryMappingResponse(&mappings[i]))
	}
	h.Success(c, out)
}

// Lookup resolves one local category path
// GET /api/v1/categories/mappings/lookup?path=...
func (h *CategoryHandler) Lookup(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		h.BadRequest(c, "Query parameter 'path' is required")
		return
	}

	mapping, err := h.mappings.FindByLocalPath(c.Request.Context(), path)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCategoryMappingResponse(mapping))
}
