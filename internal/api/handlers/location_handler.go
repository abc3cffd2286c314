package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

// LocationHandler serves the location taxonomy and landing page content.
type LocationHandler struct {
	ErrorResponder
	locationService services.ILocationService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(locationService services.ILocationService, responder ErrorResponder) *LocationHandler {
	return &LocationHandler{ErrorResponder: responder, locationService: locationService}
}

type locationContentRequest struct {
	CanonicalSlug string                 `json:"canonical_slug" binding:"required"`
	Content       models.LocationContent `json:"content"`
}

// Tree handles GET /api/locations/tree
func (h *LocationHandler) Tree(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": h.locationService.Tree()})
}

func (h *LocationHandler) resolve(c *gin.Context, country, region, city string) {
	resolved, err := h.locationService.Resolve(c.Request.Context(), country, region, city)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

// Resolve handles GET /api/locations/:country[/:region[/:city]]
func (h *LocationHandler) Resolve(c *gin.Context) {
	h.resolve(c, c.Param("country"), c.Param("region"), c.Param("city"))
}

// ResolvePath handles GET /api/foster-agency/*path
func (h *LocationHandler) ResolvePath(c *gin.Context) {
	var parts []string
	for _, p := range strings.Split(c.Param("path"), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 || len(parts) > 3 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		return
	}
	parts = append(parts, "", "")
	h.resolve(c, parts[0], parts[1], parts[2])
}

// UpsertContent handles PUT /api/admin/locations/content
func (h *LocationHandler) UpsertContent(c *gin.Context) {
	var req locationContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "canonical_slug and content are required")
		return
	}
	content, err := h.locationService.UpsertContent(c.Request.Context(), req.CanonicalSlug, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}
