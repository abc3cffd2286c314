package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

const maxWebhookBody = 1 << 20

// BillingHandler serves the subscription endpoints for agency owners and the processor webhook.
type BillingHandler struct {
	ErrorResponder
	billingService services.IBillingService
	agencyService  services.IAgencyService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService services.IBillingService, agencyService services.IAgencyService, responder ErrorResponder) *BillingHandler {
	return &BillingHandler{ErrorResponder: responder, billingService: billingService, agencyService: agencyService}
}

type checkoutRequest struct {
	PlanID string `json:"planId"`
}

// Plans handles GET /api/stripe/plans
func (h *BillingHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.billingService.Plans()})
}

func (h *BillingHandler) ownAgency(c *gin.Context) (*models.Agency, models.Principal, bool) {
	p, _ := middleware.PrincipalFrom(c)
	agency, err := h.agencyService.FindByOwner(c.Request.Context(), p.UserID)
	if err != nil {
		h.respondError(c, err)
		return nil, p, false
	}
	return agency, p, true
}

// ProvisionCustomer handles POST /api/stripe/customer
func (h *BillingHandler) ProvisionCustomer(c *gin.Context) {
	agency, p, ok := h.ownAgency(c)
	if !ok {
		return
	}
	customerID, err := h.billingService.ProvisionCustomer(c.Request.Context(), agency.ID, p.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customerId": customerID})
}

// Checkout handles POST /api/stripe/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlanID == "" {
		badRequest(c, "planId is required")
		return
	}
	agency, _, ok := h.ownAgency(c)
	if !ok {
		return
	}
	url, err := h.billingService.StartCheckout(c.Request.Context(), agency.ID, req.PlanID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Portal handles POST /api/stripe/portal
func (h *BillingHandler) Portal(c *gin.Context) {
	agency, _, ok := h.ownAgency(c)
	if !ok {
		return
	}
	url, err := h.billingService.OpenPortal(c.Request.Context(), agency.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Webhook handles POST /api/stripe/webhook. The raw body is needed for signature verification.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Failed to read body")
		return
	}
	if err := h.billingService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
