package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/lifecycle"
	"github.com/flowforge/plugin-orchestrator/internal/manifestfetch"
	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/registry"
)

func (s *Server) handleMarketplaceList(c *gin.Context) {
	filter := models.CatalogFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if v := c.Query("verified"); v != "" {
		b := v == "true"
		filter.Verified = &b
	}
	if v := c.Query("featured"); v != "" {
		b := v == "true"
		filter.Featured = &b
	}

	entries, err := s.registry.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, apperrors.RegistryFetchFailed("aggregate", err))
		return
	}

	counts, err := s.registry.CategoryCounts(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("failed to compute marketplace category counts")
		counts = nil
	}

	ok(c, http.StatusOK, gin.H{"plugins": entries, "total": len(entries), "categories": counts})
}

type marketplaceInstallBody struct {
	ManifestID string `json:"manifestId" binding:"required"`
	SourceID   string `json:"sourceId"`
	AutoStart  *bool  `json:"autoStart"`
}

func (s *Server) handleMarketplaceInstall(c *gin.Context) {
	var body marketplaceInstallBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	entries, err := s.registry.List(c.Request.Context(), models.CatalogFilter{})
	if err != nil {
		fail(c, apperrors.RegistryFetchFailed("aggregate", err))
		return
	}

	var manifest *models.Manifest
	for _, e := range entries {
		if e.Manifest.ID == body.ManifestID && (body.SourceID == "" || e.SourceID == body.SourceID) {
			m := e.Manifest
			manifest = &m
			break
		}
	}
	if manifest == nil {
		fail(c, apperrors.NotFound("catalog entry"))
		return
	}

	instance, err := s.engine.Install(c.Request.Context(), lifecycle.InstallRequest{
		Manifest:  manifest,
		AutoStart: body.AutoStart,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, instance)
}

type marketplaceInstallGitHubBody struct {
	Repository string `json:"repository" binding:"required"`
	AutoStart  *bool  `json:"autoStart"`
}

// handleMarketplaceInstallGitHub installs directly from a "owner/repo"
// source-hosting reference, following the same raw.githubusercontent.com
// manifest-at-default-branch convention the registry's source-hosting
// fetcher uses for configured sources.
func (s *Server) handleMarketplaceInstallGitHub(c *gin.Context) {
	var body marketplaceInstallGitHubBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	manifestURL := fmt.Sprintf("https://raw.githubusercontent.com/%s/main/manifest.json", body.Repository)
	manifest, err := manifestfetch.Fetch(c.Request.Context(), manifestURL)
	if err != nil {
		fail(c, apperrors.InvalidManifest(fmt.Sprintf("failed to fetch manifest from %s: %v", body.Repository, err)))
		return
	}

	instance, err := s.engine.Install(c.Request.Context(), lifecycle.InstallRequest{
		Manifest:  manifest,
		AutoStart: body.AutoStart,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, instance)
}

func (s *Server) handlePackageInspect(c *gin.Context) {
	file, err := c.FormFile("package")
	if err != nil {
		badRequest(c, "package file is required")
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, apperrors.Internal("failed to open uploaded package: "+err.Error()))
		return
	}
	defer f.Close()

	inspection, err := registry.Inspect(f, file.Size, s.engine.IsInstalled)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, inspection)
}

func (s *Server) handlePackageImport(c *gin.Context) {
	file, err := c.FormFile("package")
	if err != nil {
		badRequest(c, "package file is required")
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, apperrors.Internal("failed to open uploaded package: "+err.Error()))
		return
	}
	defer f.Close()

	inspection, err := registry.Inspect(f, file.Size, s.engine.IsInstalled)
	if err != nil {
		fail(c, err)
		return
	}

	autoStart := true
	instance, err := s.engine.Install(c.Request.Context(), lifecycle.InstallRequest{
		Manifest:  &inspection.Manifest,
		AutoStart: &autoStart,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, instance)
}
