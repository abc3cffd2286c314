package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

// AdminHandler serves agency moderation and the dashboard counters.
type AdminHandler struct {
	ErrorResponder
	agencyService   services.IAgencyService
	approvalService services.IApprovalService
	statsService    services.IStatsService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(agencyService services.IAgencyService, approvalService services.IApprovalService, statsService services.IStatsService, responder ErrorResponder) *AdminHandler {
	return &AdminHandler{
		ErrorResponder:  responder,
		agencyService:   agencyService,
		approvalService: approvalService,
		statsService:    statsService,
	}
}

type agencyActionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h *AdminHandler) agencyResult(c *gin.Context, agency *models.Agency, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agency": agency})
}

// ApproveAgency handles POST /api/admin/agencies/:id/approve
func (h *AdminHandler) ApproveAgency(c *gin.Context) {
	agency, err := h.approvalService.Approve(c.Request.Context(), c.Param("id"))
	h.agencyResult(c, agency, err)
}

// RejectAgency handles POST /api/admin/agencies/:id/reject
func (h *AdminHandler) RejectAgency(c *gin.Context) {
	var req agencyActionRequest
	_ = c.ShouldBindJSON(&req)
	agency, err := h.approvalService.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	h.agencyResult(c, agency, err)
}

// AgencyAction handles POST /api/admin/agencies/:id with {action: approve|reject|feature}.
func (h *AdminHandler) AgencyAction(c *gin.Context) {
	var req agencyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	ctx, id := c.Request.Context(), c.Param("id")
	switch req.Action {
	case "approve":
		agency, err := h.approvalService.Approve(ctx, id)
		h.agencyResult(c, agency, err)
	case "reject":
		agency, err := h.approvalService.Reject(ctx, id, req.Reason)
		h.agencyResult(c, agency, err)
	case "feature":
		agency, err := h.approvalService.ToggleFeatured(ctx, id)
		h.agencyResult(c, agency, err)
	default:
		badRequest(c, "Invalid action")
	}
}

// ListAgencies handles GET /api/admin/agencies
func (h *AdminHandler) ListAgencies(c *gin.Context) {
	page, limit := pageParams(c)
	page, limit = services.NormalizePaging(page, limit)
	f := models.AgencyFilter{
		Search: c.Query("search"),
		Status: models.AgencyStatus(c.Query("status")),
		Sort:   "newest",
	}
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

// DeleteAgency handles DELETE /api/admin/agencies/:id
func (h *AdminHandler) DeleteAgency(c *gin.Context) {
	if err := h.agencyService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.AdminStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
