package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteListingHandler_CollectRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(_ *gin.Context) {})
	router.GET("/test", func(_ *gin.Context) {})
	router.GET("/debug/pprof", func(_ *gin.Context) {})
	v1 := router.Group("/v1")
	v1.GET("/qna", func(_ *gin.Context) {})

	handler := NewRouteListingHandler("Test Service")
	handler.CollectRoutes(router)

	routes := handler.Routes()
	require.Len(t, routes, 3, "debug routes are skipped")
	assert.Equal(t, RouteInfo{Method: "GET", Path: "/test", HandlerName: routes[0].HandlerName}, routes[0])
	assert.Equal(t, "POST", routes[1].Method)
	assert.Equal(t, "/v1/qna", routes[2].Path)
}

func TestRouteListingHandler_GetRouteListingJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/test", func(_ *gin.Context) {})

	handler := NewRouteListingHandler("Format Test Service")
	handler.CollectRoutes(router)
	router.GET("/routez", handler.GetRouteListingJSON)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/routez", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	var resp struct {
		Service string      `json:"service"`
		Routes  []RouteInfo `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Format Test Service", resp.Service)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, "/test", resp.Routes[0].Path)
}

func TestNewRouter_RegistersRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Debug = true
	deps := newTestDeps()
	router, err := NewRouter(cfg, RouterDeps{Identity: deps.identity, Submissions: deps.submissions, QnAView: deps.view}, testLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/routez", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Routes []RouteInfo `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	found := map[string]bool{}
	for _, r := range resp.Routes {
		found[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /", "GET /login", "POST /login", "POST /logout",
		"GET /bug-report", "POST /bug-report", "GET /qna", "POST /qna",
		"POST /v1/auth/login", "POST /v1/auth/logout", "GET /v1/auth/session", "GET /v1/auth/events",
		"GET /v1/navigation", "POST /v1/bug-reports", "GET /v1/qna", "POST /v1/qna",
	} {
		assert.True(t, found[want], want)
	}
}
