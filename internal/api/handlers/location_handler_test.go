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

func locationRouter(svc *MockLocationService) http.Handler {
	h := handlers.NewLocationHandler(svc, responder)
	r := newRouter()
	r.GET("/api/locations/tree", h.Tree)
	r.GET("/api/locations/:country", h.Resolve)
	r.GET("/api/locations/:country/:region", h.Resolve)
	r.GET("/api/locations/:country/:region/:city", h.Resolve)
	r.GET("/api/foster-agency/*path", h.ResolvePath)
	r.PUT("/api/admin/locations/content", h.UpsertContent)
	return r
}

func TestLocationHandler_Tree(t *testing.T) {
	svc := new(MockLocationService)
	svc.On("Tree").Return([]models.LocationNode{{Name: "England", Slug: "england"}})

	w := doJSON(locationRouter(svc), http.MethodGet, "/api/locations/tree", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["countries"], 1)
}

func TestLocationHandler_Resolve(t *testing.T) {
	svc := new(MockLocationService)
	svc.On("Resolve", mock.Anything, "england", "greater-london", "croydon").Return(&models.ResolvedLocation{
		Node:      models.LocationSummary{Slug: "croydon", Level: models.LocationLevelCity},
		Content:   &models.LocationContent{Title: "Foster Agencies in Croydon"},
		IsDefault: true,
	}, nil)

	w := doJSON(locationRouter(svc), http.MethodGet, "/api/locations/england/greater-london/croydon", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["is_default"])
	assert.Equal(t, "city", body["node"].(map[string]interface{})["level"])
}

func TestLocationHandler_ResolvePath(t *testing.T) {
	svc := new(MockLocationService)
	svc.On("Resolve", mock.Anything, "england", "london", "").
		Return(&models.ResolvedLocation{Node: models.LocationSummary{Slug: "london"}}, nil)

	w := doJSON(locationRouter(svc), http.MethodGet, "/api/foster-agency/england/london/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestLocationHandler_ResolvePath_TooDeep(t *testing.T) {
	svc := new(MockLocationService)

	w := doJSON(locationRouter(svc), http.MethodGet, "/api/foster-agency/a/b/c/d", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLocationHandler_Resolve_Unknown(t *testing.T) {
	svc := new(MockLocationService)
	svc.On("Resolve", mock.Anything, "atlantis", "", "").Return(nil, apperr.NotFound("Location"))

	w := doJSON(locationRouter(svc), http.MethodGet, "/api/locations/atlantis", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLocationHandler_UpsertContent(t *testing.T) {
	svc := new(MockLocationService)
	svc.On("UpsertContent", mock.Anything, "/foster-agency/england", mock.MatchedBy(func(c models.LocationContent) bool {
		return c.Title == "Fostering in England"
	})).Return(&models.LocationContent{CanonicalSlug: "/foster-agency/england", Title: "Fostering in England"}, nil)

	w := doJSON(locationRouter(svc), http.MethodPut, "/api/admin/locations/content", map[string]interface{}{
		"canonical_slug": "/foster-agency/england",
		"content":        map[string]string{"title": "Fostering in England"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestLocationHandler_UpsertContent_MissingSlug(t *testing.T) {
	svc := new(MockLocationService)

	w := doJSON(locationRouter(svc), http.MethodPut, "/api/admin/locations/content", map[string]interface{}{
		"content": map[string]string{"title": "x"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
