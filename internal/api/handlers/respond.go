package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/apperr"
)

// ErrorResponder writes service errors as JSON. Details are withheld in production.
type ErrorResponder struct {
	ShowDetails bool
}

func statusFor(err *apperr.Error) int {
	switch err.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		if err.Unavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (r ErrorResponder) respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	ae, ok := apperr.As(err)
	if !ok {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
		body := gin.H{"error": "Internal server error"}
		if r.ShowDetails {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	status := statusFor(ae)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": ae.Message}
	if r.ShowDetails && ae.Details != "" {
		body["details"] = ae.Details
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pageParams reads page and limit query parameters. Invalid values fall back to defaults downstream.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}
