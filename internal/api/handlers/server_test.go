package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"nodetree.io/nodetree/internal/api/middleware"
	"nodetree.io/nodetree/internal/pkg/logger"
	"nodetree.io/nodetree/internal/repository"
	"nodetree.io/nodetree/internal/service"
	"nodetree.io/nodetree/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

const basePath = "/api/nodes"

type testEnv struct {
	router *gin.Engine
	store  *repository.NodeStore
	rootID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := repository.NewNodeStore(testutil.OpenSQLite(t), 0)
	require.NoError(t, store.Migrate(ctx))

	// A wide fixed window keeps generation from running out of names.
	alloc := service.FixedRangeAllocator{Min: 10, Max: 40}
	gen := service.NewSubNodeGenerator(store, alloc, rand.NewPCG(3, 4))
	svc := service.NewNodeService(store, alloc, gen, nil)
	root, err := svc.EnsureRoot(ctx)
	require.NoError(t, err)

	srv := NewServer(ServerDeps{Nodes: svc, DB: store})
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler())
	router.NoRoute(middleware.NoRoute())
	srv.RegisterNodeRoutes(router.Group(basePath))
	srv.RegisterOpsRoutes(router)

	return &testEnv{router: router, store: store, rootID: root.ID}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body=%s", w.Body.String())
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	require.Equal(t, status, w.Code, "body=%s", w.Body.String())
	body := decodeJSON[errorBody](t, w)
	require.Equal(t, code, body.Code)
	return body
}
