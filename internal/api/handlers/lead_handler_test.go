package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/syed-c/foster-care-sub001/internal/api/handlers"
	"github.com/syed-c/foster-care-sub001/internal/apperr"
	"github.com/syed-c/foster-care-sub001/internal/models"
)

func TestLeadHandler_ContactAgency(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.POST("/api/contact/agency", h.ContactAgency)

	in := models.LeadInput{Name: "Jo", Email: "jo@example.com", Message: "Hello"}
	leads.On("CreateForAgency", mock.Anything, "a1", in).
		Return(&models.Lead{Base: models.Base{ID: "l1"}, Status: models.LeadStatusNew}, models.NotificationResult{Queued: true}, nil)

	w := doJSON(r, http.MethodPost, "/api/contact/agency", map[string]string{
		"agencyId": "a1", "name": "Jo", "email": "jo@example.com", "message": "Hello",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["notification"].(map[string]interface{})["queued"])
	leads.AssertExpectations(t)
}

func TestLeadHandler_ContactAgency_NotificationFailureStillSucceeds(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.POST("/api/contact/agency", h.ContactAgency)

	leads.On("CreateForAgency", mock.Anything, "a1", mock.Anything).
		Return(&models.Lead{Base: models.Base{ID: "l1"}}, models.NotificationResult{Queued: false, Error: "queue down"}, nil)

	w := doJSON(r, http.MethodPost, "/api/contact/agency", map[string]string{
		"agencyId": "a1", "name": "Jo", "email": "jo@example.com", "message": "Hello",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	n := decode(t, w)["notification"].(map[string]interface{})
	assert.Equal(t, false, n["queued"])
	assert.Equal(t, "queue down", n["error"])
}

func TestLeadHandler_ContactAgency_MissingFields(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.POST("/api/contact/agency", h.ContactAgency)

	leads.On("CreateForAgency", mock.Anything, "a1", mock.Anything).
		Return(nil, models.NotificationResult{}, apperr.Validation("Missing required fields: name, email, message"))

	w := doJSON(r, http.MethodPost, "/api/contact/agency", map[string]string{"agencyId": "a1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Missing required fields")
}

func TestLeadHandler_ContactGeneral(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.POST("/api/contact/general", h.ContactGeneral)

	in := models.LeadInput{Name: "Jo", Email: "jo@example.com", Message: "Where do I start?"}
	leads.On("CreateGeneral", mock.Anything, in).
		Return(&models.Lead{Base: models.Base{ID: "l2"}, Type: models.LeadTypeGeneral}, models.NotificationResult{Queued: true}, nil)

	w := doJSON(r, http.MethodPost, "/api/contact/general", in)

	assert.Equal(t, http.StatusOK, w.Code)
	leads.AssertExpectations(t)
}

func TestLeadHandler_AdminListLeads(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.GET("/api/admin/leads", h.AdminListLeads)

	leads.On("List", mock.Anything, models.LeadFilter{Status: models.LeadStatusNew, Search: "jo"}, 1, 10).
		Return([]models.Lead{{Base: models.Base{ID: "l1"}}}, int64(21), nil)

	w := doJSON(r, http.MethodGet, "/api/admin/leads?status=new&search=jo&limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Equal(t, float64(1), body["currentPage"])
	assert.Equal(t, float64(21), body["total"])
}

func TestLeadHandler_AdminTransitionLead(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.POST("/api/admin/leads/:id/:status", h.AdminTransitionLead)

	leads.On("Transition", mock.Anything, "l1", models.LeadStatusReplied).
		Return(&models.Lead{Base: models.Base{ID: "l1"}, Status: models.LeadStatusReplied}, nil)
	leads.On("Transition", mock.Anything, "l1", models.LeadStatusNew).
		Return(nil, apperr.Validation("Cannot move lead from replied to new"))

	w := doJSON(r, http.MethodPost, "/api/admin/leads/l1/replied", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "replied", decode(t, w)["lead"].(map[string]interface{})["status"])

	w = doJSON(r, http.MethodPost, "/api/admin/leads/l1/new", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadHandler_AdminUpdateLead(t *testing.T) {
	leads := new(MockLeadService)
	h := handlers.NewLeadHandler(leads, new(MockAgencyService), responder)
	r := newRouter()
	r.PUT("/api/admin/leads/:id", h.AdminUpdateLead)

	notes := "Called back"
	leads.On("Update", mock.Anything, "l1", models.LeadUpdate{Notes: &notes}).
		Return(&models.Lead{Base: models.Base{ID: "l1"}, Notes: notes}, nil)

	w := doJSON(r, http.MethodPut, "/api/admin/leads/l1", map[string]string{"notes": notes})

	assert.Equal(t, http.StatusOK, w.Code)
	leads.AssertExpectations(t)
}

func TestLeadHandler_DashboardLeads_ScopedToOwnAgency(t *testing.T) {
	leads := new(MockLeadService)
	agencies := new(MockAgencyService)
	h := handlers.NewLeadHandler(leads, agencies, responder)
	r := newRouter()
	r.GET("/api/dashboard/leads", as(models.Principal{UserID: "owner", Role: models.RoleAgency}), h.DashboardLeads)

	agencies.On("FindByOwner", mock.Anything, "owner").Return(&models.Agency{Base: models.Base{ID: "a9"}}, nil)
	leads.On("List", mock.Anything, models.LeadFilter{AgencyID: "a9"}, 1, 20).Return([]models.Lead{}, int64(0), nil)

	w := doJSON(r, http.MethodGet, "/api/dashboard/leads", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	leads.AssertExpectations(t)
}

func TestLeadHandler_DashboardLeads_NoAgency(t *testing.T) {
	leads := new(MockLeadService)
	agencies := new(MockAgencyService)
	h := handlers.NewLeadHandler(leads, agencies, responder)
	r := newRouter()
	r.GET("/api/dashboard/leads", as(models.Principal{UserID: "owner", Role: models.RoleAgency}), h.DashboardLeads)

	agencies.On("FindByOwner", mock.Anything, "owner").Return(nil, apperr.NotFound("Agency"))

	w := doJSON(r, http.MethodGet, "/api/dashboard/leads", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	leads.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
