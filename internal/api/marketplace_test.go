package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleMarketplaceInstall_InvalidBody(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/marketplace/install", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	// manifestId is required; an empty body must fail binding before the
	// handler ever touches the registry.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMarketplaceInstallGitHub_InvalidBody(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/marketplace/install/github", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePackageInspect_MissingFile(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/marketplace/packages/inspect", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePackageImport_MissingFile(t *testing.T) {
	s := newTestServer()
	r := newHandlerRouter(s)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/marketplace/packages/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
