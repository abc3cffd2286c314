package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/services"
	"github.com/syed-c/foster-care-sub001/internal/storage"
	"github.com/syed-c/foster-care-sub001/internal/tasks"
)

// MediaHandler issues upload URLs for agency logos and cover images.
type MediaHandler struct {
	ErrorResponder
	agencyService services.IAgencyService
	storage       storage.IS3Storage
	taskClient    tasks.IAsynqClient
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(agencyService services.IAgencyService, store storage.IS3Storage, taskClient tasks.IAsynqClient, responder ErrorResponder) *MediaHandler {
	return &MediaHandler{ErrorResponder: responder, agencyService: agencyService, storage: store, taskClient: taskClient}
}

type mediaUploadRequest struct {
	Kind        string `json:"kind" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type mediaConfirmRequest struct {
	Kind string `json:"kind" binding:"required"`
	Key  string `json:"key" binding:"required"`
}

func validMediaKind(kind string) bool {
	return kind == services.MediaKindLogo || kind == services.MediaKindCover
}

// RequestUpload handles POST /api/agencies/:id/media
func (h *MediaHandler) RequestUpload(c *gin.Context) {
	var req mediaUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "kind and contentType are required")
		return
	}
	if !validMediaKind(req.Kind) {
		badRequest(c, "kind must be logo or cover")
		return
	}
	if _, ok := storage.AllowedImageTypes[req.ContentType]; !ok {
		badRequest(c, "Unsupported image type")
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	agency, err := h.agencyService.CanManage(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}

	url, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), agency.ID, req.Kind, req.ContentType)
	if err != nil {
		log.Printf("ERROR: presign for agency %s failed: %v", agency.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare upload"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

// ConfirmUpload handles POST /api/agencies/:id/media/confirm
func (h *MediaHandler) ConfirmUpload(c *gin.Context) {
	var req mediaConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "kind and key are required")
		return
	}
	if !validMediaKind(req.Kind) {
		badRequest(c, "kind must be logo or cover")
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	agency, err := h.agencyService.CanManage(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.storage.OwnsKey(agency.ID, req.Kind, req.Key) {
		badRequest(c, "Key was not issued for this agency")
		return
	}

	task, err := tasks.NewImageProcessTask(tasks.ImageTaskPayload{S3Key: req.Key, AgencyID: agency.ID, Kind: req.Kind})
	if err == nil {
		_, err = h.taskClient.EnqueueContext(c.Request.Context(), task)
	}
	if err != nil {
		log.Printf("ERROR: failed to enqueue image task for agency %s: %v", agency.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule image processing"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "processing"})
}
