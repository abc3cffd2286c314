package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

// AgencyHandler serves the public directory catalog.
type AgencyHandler struct {
	ErrorResponder
	agencyService services.IAgencyService
}

// NewAgencyHandler creates a new AgencyHandler.
func NewAgencyHandler(agencyService services.IAgencyService, responder ErrorResponder) *AgencyHandler {
	return &AgencyHandler{ErrorResponder: responder, agencyService: agencyService}
}

func agencyFilterFromQuery(c *gin.Context) models.AgencyFilter {
	f := models.AgencyFilter{
		Search: c.Query("search"),
		Type:   c.Query("type"),
		Status: models.AgencyStatus(c.Query("status")),
		Sort:   c.Query("sort"),
	}
	if raw := c.Query("featured"); raw != "" {
		if featured, err := strconv.ParseBool(raw); err == nil {
			f.Featured = &featured
		}
	}
	return f
}

func (h *AgencyHandler) listAgencies(c *gin.Context, f models.AgencyFilter) {
	page, limit := pageParams(c)
	page, limit = services.NormalizePaging(page, limit)
	agencies, total, err := h.agencyService.List(c.Request.Context(), f, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agencies":   agencies,
		"pagination": models.NewPagination(page, limit, total),
	})
}

// ListAgencies handles GET /api/agencies
func (h *AgencyHandler) ListAgencies(c *gin.Context) {
	h.listAgencies(c, agencyFilterFromQuery(c))
}

// GetAgency handles GET /api/agencies/:id
func (h *AgencyHandler) GetAgency(c *gin.Context) {
	agency, err := h.agencyService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agency": agency})
}

// CreateAgency handles POST /api/agencies
func (h *AgencyHandler) CreateAgency(c *gin.Context) {
	var in models.AgencyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	agency, err := h.agencyService.Create(c.Request.Context(), in, p.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"agency": agency})
}

// UpdateAgency handles PUT /api/agencies/:id
func (h *AgencyHandler) UpdateAgency(c *gin.Context) {
	var in models.AgencyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	agency, err := h.agencyService.Update(c.Request.Context(), c.Param("id"), in, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agency": agency})
}

// ListReviews handles GET /api/agencies/:id/reviews
func (h *AgencyHandler) ListReviews(c *gin.Context) {
	reviews, err := h.agencyService.ListReviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// AddReview handles POST /api/agencies/:id/reviews
func (h *AgencyHandler) AddReview(c *gin.Context) {
	var in models.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	review, summary, err := h.agencyService.AddReview(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review, "agency": summary})
}
