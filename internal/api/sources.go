package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func (s *Server) handleListSources(c *gin.Context) {
	sources, err := s.store.ListSources(c.Request.Context())
	if err != nil {
		fail(c, apperrors.StorageFailure(err))
		return
	}
	ok(c, http.StatusOK, gin.H{"sources": sources})
}

type createSourceBody struct {
	SourceID  string `json:"sourceId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	URL       string `json:"url" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	Priority  int    `json:"priority"`
	Enabled   *bool  `json:"enabled"`
}

func (s *Server) handleCreateSource(c *gin.Context) {
	var body createSourceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if body.Kind != models.SourceKindHTTPIndex && body.Kind != models.SourceKindSourceHosting {
		badRequest(c, "kind must be one of http-index, source-hosting")
		return
	}

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}

	src := models.SourceRegistration{
		SourceID: body.SourceID,
		Name:     body.Name,
		URL:      body.URL,
		Kind:     body.Kind,
		Priority: body.Priority,
		Enabled:  enabled,
	}
	if err := s.store.UpsertSource(c.Request.Context(), src); err != nil {
		fail(c, apperrors.StorageFailure(err))
		return
	}
	ok(c, http.StatusCreated, src)
}

func (s *Server) handleDeleteSource(c *gin.Context) {
	if err := s.store.DeleteSource(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, apperrors.StorageFailure(err))
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleToggleSource(c *gin.Context) {
	sources, err := s.store.ListSources(c.Request.Context())
	if err != nil {
		fail(c, apperrors.StorageFailure(err))
		return
	}

	id := c.Param("id")
	for _, src := range sources {
		if src.SourceID != id {
			continue
		}
		src.Enabled = !src.Enabled
		if err := s.store.UpsertSource(c.Request.Context(), src); err != nil {
			fail(c, apperrors.StorageFailure(err))
			return
		}
		ok(c, http.StatusOK, src)
		return
	}
	fail(c, apperrors.NotFound("source"))
}

func (s *Server) handleRefreshSource(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.RefreshSource(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"refreshed": id})
}

func (s *Server) handleRefreshAllSources(c *gin.Context) {
	s.registry.RefreshAll(c.Request.Context())
	ok(c, http.StatusOK, gin.H{"refreshed": "all"})
}
