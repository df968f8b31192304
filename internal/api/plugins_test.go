package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/plugin-orchestrator/internal/api/middleware"
	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/lifecycle"
)

func newTestServer() *Server {
	return &Server{engine: lifecycle.New(lifecycle.Deps{})}
}

func newHandlerRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	s.registerRoutes(r)
	return r
}

func TestHandleListPlugins_EmptyIndex(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
}

func TestHandleGetPlugin_NotFound(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apperrors.CodeNotFound), env.Error.Code)
}

func TestHandleInstallPlugin_InvalidBody(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/install", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpdatePlugin_InvalidBody(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plugins/k1/update", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStartPlugin_NotFound(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/plugins/missing/start", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePluginLogs_NotFound(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/missing/logs", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleRollbackPlugin_NotFound(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/plugins/missing/rollback", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUninstallPlugin_NotFound(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/plugins/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
