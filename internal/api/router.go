package api

import "github.com/gin-gonic/gin"

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/ws/events", s.handleEventStream)

	v1 := r.Group("/api/v1")
	{
		plugins := v1.Group("/plugins")
		plugins.GET("", s.handleListPlugins)
		plugins.POST("/install", s.handleInstallPlugin)
		plugins.GET("/:pluginKey", s.handleGetPlugin)
		plugins.POST("/:pluginKey/start", s.handleStartPlugin)
		plugins.POST("/:pluginKey/stop", s.handleStopPlugin)
		plugins.POST("/:pluginKey/restart", s.handleRestartPlugin)
		plugins.DELETE("/:pluginKey", s.handleUninstallPlugin)
		plugins.POST("/:pluginKey/update", s.handleUpdatePlugin)
		plugins.POST("/:pluginKey/rollback", s.handleRollbackPlugin)
		plugins.GET("/:pluginKey/logs", s.handlePluginLogs)
		plugins.GET("/:pluginKey/updates", s.handlePluginUpdateHistory)

		marketplace := v1.Group("/marketplace")
		marketplace.GET("/plugins", s.handleMarketplaceList)
		marketplace.POST("/install", s.handleMarketplaceInstall)
		marketplace.POST("/install/github", s.handleMarketplaceInstallGitHub)
		marketplace.POST("/packages/inspect", s.handlePackageInspect)
		marketplace.POST("/packages/import", s.handlePackageImport)

		sources := marketplace.Group("/sources")
		sources.GET("", s.handleListSources)
		sources.POST("", s.handleCreateSource)
		sources.DELETE("/:id", s.handleDeleteSource)
		sources.POST("/:id/toggle", s.handleToggleSource)
		sources.POST("/:id/refresh", s.handleRefreshSource)
		sources.POST("/refresh-all", s.handleRefreshAllSources)
	}
}
