package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/plugin-orchestrator/internal/api/middleware"
	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
)

func newEnvelopeTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestOk_WritesSuccessEnvelope(t *testing.T) {
	r := newEnvelopeTestRouter()
	r.GET("/x", func(c *gin.Context) { ok(c, http.StatusOK, gin.H{"hello": "world"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.NotEmpty(t, env.RequestID)
	assert.False(t, env.Timestamp.IsZero())
}

func TestFail_WritesErrorEnvelopeWithMappedStatus(t *testing.T) {
	r := newEnvelopeTestRouter()
	r.GET("/x", func(c *gin.Context) { fail(c, apperrors.NotFound("plugin")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apperrors.CodeNotFound), env.Error.Code)
}

func TestFail_WrapsNonAppError(t *testing.T) {
	r := newEnvelopeTestRouter()
	r.GET("/x", func(c *gin.Context) { fail(c, assert.AnError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(apperrors.CodeInternal), env.Error.Code)
}

func TestBadRequest_WritesValidationError(t *testing.T) {
	r := newEnvelopeTestRouter()
	r.GET("/x", func(c *gin.Context) { badRequest(c, "name is required") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "name is required", env.Error.Message)
}
