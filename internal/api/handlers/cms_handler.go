package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

// CMSHandler serves the page/section/field content tree.
type CMSHandler struct {
	ErrorResponder
	cmsService services.ICMSService
}

// NewCMSHandler creates a new CMSHandler.
func NewCMSHandler(cmsService services.ICMSService, responder ErrorResponder) *CMSHandler {
	return &CMSHandler{ErrorResponder: responder, cmsService: cmsService}
}

type pageRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type sectionRequest struct {
	PageID    string `json:"pageId"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type fieldRequest struct {
	SectionID string           `json:"sectionId"`
	Key       string           `json:"key"`
	Type      models.FieldType `json:"type"`
	Label     string           `json:"label"`
	Required  bool             `json:"required"`
	SortOrder int              `json:"sort_order"`
	Value     interface{}      `json:"value"`
}

type fieldValueRequest struct {
	Value interface{} `json:"value"`
}

// ListPages handles GET /api/cms/pages
func (h *CMSHandler) ListPages(c *gin.Context) {
	pages, err := h.cmsService.ListPages(c.Request.Context(), c.Query("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}

// CreatePage handles POST /api/cms/pages
func (h *CMSHandler) CreatePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	page, err := h.cmsService.CreatePage(c.Request.Context(), &models.Page{
		Name: req.Name, Slug: req.Slug, Type: req.Type, Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"page": page})
}

// GetPage handles GET /api/cms/pages/:id and returns the whole tree.
func (h *CMSHandler) GetPage(c *gin.Context) {
	tree, err := h.cmsService.GetPageTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// DeletePage handles DELETE /api/cms/pages/:id
func (h *CMSHandler) DeletePage(c *gin.Context) {
	if err := h.cmsService.DeletePage(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListSections handles GET /api/cms/sections?pageId=
func (h *CMSHandler) ListSections(c *gin.Context) {
	pageID := c.Query("pageId")
	if pageID == "" {
		badRequest(c, "pageId is required")
		return
	}
	sections, err := h.cmsService.ListSections(c.Request.Context(), pageID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

// CreateSection handles POST /api/cms/sections
func (h *CMSHandler) CreateSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	section, err := h.cmsService.CreateSection(c.Request.Context(), &models.Section{
		PageID: req.PageID, Key: req.Key, Type: req.Type, Title: req.Title,
		Content: req.Content, SortOrder: req.SortOrder, IsActive: active,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": section})
}

// DeleteSection handles DELETE /api/cms/sections/:id
func (h *CMSHandler) DeleteSection(c *gin.Context) {
	if err := h.cmsService.DeleteSection(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListFields handles GET /api/cms/fields?sectionId=
func (h *CMSHandler) ListFields(c *gin.Context) {
	sectionID := c.Query("sectionId")
	if sectionID == "" {
		badRequest(c, "sectionId is required")
		return
	}
	fields, err := h.cmsService.ListFields(c.Request.Context(), sectionID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// CreateField handles POST /api/cms/fields
func (h *CMSHandler) CreateField(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	field, err := h.cmsService.CreateField(c.Request.Context(), &models.Field{
		SectionID: req.SectionID, Key: req.Key, Type: req.Type, Label: req.Label,
		Required: req.Required, SortOrder: req.SortOrder, Value: req.Value,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"field": field})
}

// UpdateFieldValue handles PUT /api/cms/fields/:id
func (h *CMSHandler) UpdateFieldValue(c *gin.Context) {
	var req fieldValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	field, err := h.cmsService.UpdateFieldValue(c.Request.Context(), c.Param("id"), req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": field})
}

// DeleteField handles DELETE /api/cms/fields/:id
func (h *CMSHandler) DeleteField(c *gin.Context) {
	if err := h.cmsService.DeleteField(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
