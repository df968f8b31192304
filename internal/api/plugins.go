package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/lifecycle"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func (s *Server) handleListPlugins(c *gin.Context) {
	var filter models.PluginFilter
	if status := c.Query("status"); status != "" {
		filter.Status = models.Status(status)
	}
	instances := s.engine.List(filter)

	summaries := make([]models.PluginSummary, 0, len(instances))
	for _, p := range instances {
		summaries = append(summaries, p.Summary())
	}
	ok(c, http.StatusOK, gin.H{"plugins": summaries, "total": len(summaries)})
}

func (s *Server) handleGetPlugin(c *gin.Context) {
	instance := s.engine.Get(c.Param("pluginKey"))
	if instance == nil {
		fail(c, apperrors.NotFound("plugin"))
		return
	}
	ok(c, http.StatusOK, instance)
}

type installRequestBody struct {
	ManifestURL string            `json:"manifestUrl"`
	Manifest    *models.Manifest  `json:"manifest"`
	Config      map[string]string `json:"config"`
	Environment map[string]string `json:"environment"`
	AutoStart   *bool             `json:"autoStart"`
}

func (s *Server) handleInstallPlugin(c *gin.Context) {
	var body installRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	instance, err := s.engine.Install(c.Request.Context(), lifecycle.InstallRequest{
		ManifestURL: body.ManifestURL,
		Manifest:    body.Manifest,
		Config:      body.Config,
		Environment: body.Environment,
		AutoStart:   body.AutoStart,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, instance)
}

func (s *Server) handleStartPlugin(c *gin.Context) {
	instance, err := s.engine.Start(c.Request.Context(), c.Param("pluginKey"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, instance)
}

func (s *Server) handleStopPlugin(c *gin.Context) {
	instance, err := s.engine.Stop(c.Request.Context(), c.Param("pluginKey"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, instance)
}

func (s *Server) handleRestartPlugin(c *gin.Context) {
	instance, err := s.engine.Restart(c.Request.Context(), c.Param("pluginKey"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, instance)
}

func (s *Server) handleUninstallPlugin(c *gin.Context) {
	if err := s.engine.Uninstall(c.Request.Context(), c.Param("pluginKey")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"uninstalled": true})
}

type updateRequestBody struct {
	BundleURL   string           `json:"bundleUrl"`
	ImageTag    string           `json:"imageTag"`
	Manifest    *models.Manifest `json:"manifest"`
}

func (s *Server) handleUpdatePlugin(c *gin.Context) {
	var body updateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	instance, err := s.engine.Update(c.Request.Context(), c.Param("pluginKey"), lifecycle.UpdateRequest{
		NewManifest: body.Manifest,
		NewImageTag: body.ImageTag,
		BundleURL:   body.BundleURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, instance)
}

func (s *Server) handleRollbackPlugin(c *gin.Context) {
	instance, err := s.engine.Rollback(c.Request.Context(), c.Param("pluginKey"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, instance)
}

func (s *Server) handlePluginLogs(c *gin.Context) {
	instance := s.engine.Get(c.Param("pluginKey"))
	if instance == nil {
		fail(c, apperrors.NotFound("plugin"))
		return
	}
	if instance.ContainerHandle == "" {
		ok(c, http.StatusOK, gin.H{"logs": []string{}})
		return
	}

	tail := 200
	if raw := c.Query("tail"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			tail = n
		}
	}

	raw, err := s.driver.TailLogs(c.Request.Context(), instance.ContainerHandle, tail)
	if err != nil {
		fail(c, apperrors.RuntimeUnavailable(err))
		return
	}
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = []string{}
	}
	ok(c, http.StatusOK, gin.H{"logs": lines})
}

func (s *Server) handlePluginUpdateHistory(c *gin.Context) {
	history, err := s.store.ListHistory(c.Request.Context(), c.Param("pluginKey"))
	if err != nil {
		fail(c, apperrors.StorageFailure(err))
		return
	}
	ok(c, http.StatusOK, gin.H{"updates": history})
}
