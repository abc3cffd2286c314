package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

// LeadHandler serves the contact forms and lead administration.
type LeadHandler struct {
	ErrorResponder
	leadService   services.ILeadService
	agencyService services.IAgencyService
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(leadService services.ILeadService, agencyService services.IAgencyService, responder ErrorResponder) *LeadHandler {
	return &LeadHandler{ErrorResponder: responder, leadService: leadService, agencyService: agencyService}
}

type agencyContactRequest struct {
	AgencyID string `json:"agencyId"`
	models.LeadInput
}

func leadCreatedResponse(c *gin.Context, lead *models.Lead, n models.NotificationResult) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Your enquiry has been sent",
		"lead":         lead,
		"notification": n,
	})
}

// ContactAgency handles POST /api/contact/agency
func (h *LeadHandler) ContactAgency(c *gin.Context) {
	var req agencyContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	lead, n, err := h.leadService.CreateForAgency(c.Request.Context(), req.AgencyID, req.LeadInput)
	if err != nil {
		h.respondError(c, err)
		return
	}
	leadCreatedResponse(c, lead, n)
}

// ContactGeneral handles POST /api/contact/general
func (h *LeadHandler) ContactGeneral(c *gin.Context) {
	var in models.LeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	lead, n, err := h.leadService.CreateGeneral(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	leadCreatedResponse(c, lead, n)
}

func (h *LeadHandler) listLeads(c *gin.Context, f models.LeadFilter) {
	page, limit := pageParams(c)
	page, limit = services.NormalizePaging(page, limit)
	leads, total, err := h.leadService.List(c.Request.Context(), f, page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leads":       leads,
		"totalPages":  models.NewPagination(page, limit, total).Pages,
		"currentPage": page,
		"total":       total,
	})
}

// AdminListLeads handles GET /api/admin/leads
func (h *LeadHandler) AdminListLeads(c *gin.Context) {
	h.listLeads(c, models.LeadFilter{
		Status: models.LeadStatus(c.Query("status")),
		Search: c.Query("search"),
	})
}

// AdminTransitionLead handles POST /api/admin/leads/:id/:status
func (h *LeadHandler) AdminTransitionLead(c *gin.Context) {
	lead, err := h.leadService.Transition(c.Request.Context(), c.Param("id"), models.LeadStatus(c.Param("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// AdminUpdateLead handles PUT /api/admin/leads/:id
func (h *LeadHandler) AdminUpdateLead(c *gin.Context) {
	var in models.LeadUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	lead, err := h.leadService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// DashboardLeads handles GET /api/dashboard/leads for the caller's own agency.
func (h *LeadHandler) DashboardLeads(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	agency, err := h.agencyService.FindByOwner(c.Request.Context(), p.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.listLeads(c, models.LeadFilter{
		AgencyID: agency.ID,
		Status:   models.LeadStatus(c.Query("status")),
		Search:   c.Query("search"),
	})
}
