package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
)

// UserHandler serves signup, login and the caller's profile.
type UserHandler struct {
	ErrorResponder
	userService services.IUserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService, responder ErrorResponder) *UserHandler {
	return &UserHandler{ErrorResponder: responder, userService: userService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup
func (h *UserHandler) Signup(c *gin.Context) {
	var in models.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := h.userService.Signup(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login handles POST /api/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	token, err := h.userService.IssueToken(user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me handles GET /api/auth/me and GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	user, err := h.userService.GetProfile(c.Request.Context(), p.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe handles PUT /api/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var in models.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, _ := middleware.PrincipalFrom(c)
	user, err := h.userService.UpdateProfile(c.Request.Context(), p.UserID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// SaveAgency handles POST /api/users/me/saved-agencies/:agencyId
func (h *UserHandler) SaveAgency(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	saved, err := h.userService.SaveAgency(c.Request.Context(), p.UserID, c.Param("agencyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedAgencies": saved})
}

// UnsaveAgency handles DELETE /api/users/me/saved-agencies/:agencyId
func (h *UserHandler) UnsaveAgency(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	saved, err := h.userService.UnsaveAgency(c.Request.Context(), p.UserID, c.Param("agencyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedAgencies": saved})
}
