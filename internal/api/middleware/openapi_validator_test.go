package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"nodetree.io/nodetree/internal/api/contract"
	apperrors "nodetree.io/nodetree/internal/pkg/errors"
)

func TestNormalizeValidationPath(t *testing.T) {
	testCases := []struct {
		name     string
		basePath string
		path     string
		want     string
	}{
		{name: "strip prefix", basePath: "/api/nodes", path: "/api/nodes/5/", want: "/5/"},
		{name: "root path", basePath: "/api/nodes", path: "/api/nodes", want: "/"},
		{name: "root slash", basePath: "/api/nodes", path: "/api/nodes/", want: "/"},
		{name: "no match", basePath: "/api/nodes", path: "/health/live", want: "/health/live"},
		{name: "empty base", basePath: "", path: "/5/nodes/", want: "/5/nodes/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeValidationPath(normalizeBasePath(tc.basePath), tc.path)
			if got != tc.want {
				t.Fatalf("normalizeValidationPath mismatch: got %q want %q", got, tc.want)
			}
		})
	}
}

func newValidatedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MustOpenAPIValidator("/api/nodes"), ErrorHandler())
	return router
}

func nodeBody(id int64) gin.H {
	return gin.H{
		"id":                id,
		"name":              "Alpha",
		"min_num":           3,
		"max_num":           20,
		"parent_id":         1,
		"can_have_children": true,
		"children":          []gin.H{},
	}
}

func TestOpenAPIValidatorRejectsUnknownField(t *testing.T) {
	router := newValidatedRouter(t)
	router.POST("/api/nodes/", func(c *gin.Context) {
		c.JSON(http.StatusCreated, nodeBody(2))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/nodes/", bytes.NewBufferString(`{"name":"Alpha","color":"red"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.Code)
	}
}

func TestOpenAPIValidatorRejectsWrongCountType(t *testing.T) {
	router := newValidatedRouter(t)
	router.POST("/api/nodes/:id/nodes/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok", "parent_id": 2, "count": 0, "children": []gin.H{}})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/nodes/2/nodes/", bytes.NewBufferString(`{"count":"three"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for string count, got %d", resp.Code)
	}
}

func TestOpenAPIValidatorAcceptsValidCreate(t *testing.T) {
	router := newValidatedRouter(t)
	router.POST("/api/nodes/", func(c *gin.Context) {
		c.JSON(http.StatusCreated, nodeBody(2))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/nodes/", bytes.NewBufferString(`{"name":"Alpha"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for valid create, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestOpenAPIValidatorPassesHandlerErrors(t *testing.T) {
	router := newValidatedRouter(t)
	router.GET("/api/nodes/:id/", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNodeNotFoundf(99))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/nodes/99/", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestOpenAPIValidatorFlagsInvalidResponse(t *testing.T) {
	router := newValidatedRouter(t)
	router.GET("/api/nodes/", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": "not-a-number"}})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/nodes/", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for contract-violating response, got %d", resp.Code)
	}
}

func TestOpenAPIValidatorIgnoresPathsOutsideContract(t *testing.T) {
	router := newValidatedRouter(t)
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestFindContractRouteResolvesOperations(t *testing.T) {
	swagger, err := contract.GetSwagger()
	require.NoError(t, err)
	router, err := gorillamux.NewRouter(swagger)
	require.NoError(t, err)

	testCases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/nodes/", "listRoots"},
		{http.MethodPost, "/api/nodes/", "createNode"},
		{http.MethodGet, "/api/nodes/7/", "getNode"},
		{http.MethodPut, "/api/nodes/7/", "updateNode"},
		{http.MethodDelete, "/api/nodes/7/", "deleteNode"},
		{http.MethodPost, "/api/nodes/7/nodes/", "regenerateChildren"},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			route, _, err := findContractRoute(router, req, "/api/nodes")
			require.NoError(t, err)
			require.Equal(t, tc.want, route.Operation.OperationID)
			require.Equal(t, tc.path, req.URL.Path, "request path restored")
		})
	}
}

func TestOpenAPIValidatorAcceptsListAndRegenerate(t *testing.T) {
	router := newValidatedRouter(t)
	router.GET("/api/nodes/", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{nodeBody(1)})
	})
	router.POST("/api/nodes/:id/nodes/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok", "parent_id": 2, "count": 0, "children": []gin.H{}})
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/nodes/", nil))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/nodes/2/nodes/", bytes.NewBufferString(`{"count":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
